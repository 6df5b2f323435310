package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clipboard "golang.design/x/clipboard"

	"gridchat/client"
	"gridchat/gateway"
	"gridchat/sprite"
	"gridchat/world"
)

var (
	host    string
	fake    bool
	doDebug bool
	npcs    int
)

func main() {
	flag.StringVar(&host, "host", "", "server address (host:port or URL); overrides settings")
	flag.BoolVar(&fake, "fake", false, "run against an in-process world instead of a server")
	flag.BoolVar(&doDebug, "debug", false, "verbose/debug logging")
	flag.IntVar(&npcs, "npcs", 3, "wandering avatars to add in -fake mode")
	flag.Parse()

	loadSettings()
	if host != "" {
		gs.Host = host
	}
	setupLogging(doDebug)

	if err := clipboard.Init(); err != nil {
		logWarn("clipboard unavailable: %v", err)
	} else {
		clipboardReady = true
	}
	initFont()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer cancel()

	gw, src := connect(ctx)

	loader := sprite.NewLoader(ctx, src, gs.SpriteFetchers, time.Duration(gs.RequestTimeoutMS)*time.Millisecond)
	loader.Debugf = logDebug
	store := world.NewStore(loader)

	alerts := &client.Alerts{Notify: alertNotifier}
	sess := client.NewSession(sessionConfig(), gw, store, alerts)
	sess.Debugf = logDebug
	sess.Warnf = logWarn

	go func() {
		if err := sess.Bootstrap(ctx); err != nil {
			// Already alerted and logged by alertNotifier.
			logDebug("%v", err)
			return
		}
		id, _ := store.LocalID()
		log.Printf("joined as avatar %d", id)
		sess.RunSync(ctx)
	}()

	runGame(newGame(ctx, sess, alerts))
	cancel()
	sess.Controller().Wait()
}

// connect picks the gateway and the sprite source for this run.
func connect(ctx context.Context) (client.Gateway, sprite.Source) {
	if fake {
		f := gateway.NewFake(time.Now().UnixNano())
		for range npcs {
			f.AddNPC()
		}
		go f.RunNPCs(ctx, time.Second)
		log.Printf("fake world with %d npcs", npcs)
		return f, sprite.Placeholder{}
	}
	hc := &http.Client{}
	gw, err := gateway.NewHTTP(gs.Host, hc)
	if err != nil {
		log.Fatalf("bad host %q: %v", gs.Host, err)
	}
	log.Printf("server %s", gw.Base())
	return gw, sprite.HTTPSource{Base: gw.Base(), Client: hc}
}
