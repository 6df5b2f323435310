package main

import (
	"os"
	"runtime"

	"github.com/gen2brain/beeep"

	"gridchat/client"
)

// notifyDesktop shows a desktop notification, best-effort and non-fatal.
func notifyDesktop(title, body string) {
	if body == "" {
		return
	}
	// Skip on headless Linux without DISPLAY; beeep would error.
	if runtime.GOOS == "linux" && (os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "") {
		return
	}
	if err := beeep.Notify(title, body, ""); err != nil {
		logDebug("notify: %v", err)
	}
}

// alertNotifier logs every alert and mirrors it to the desktop when enabled.
func alertNotifier(a client.Alert) {
	if a.Severity == client.SeverityWarning {
		logWarn("%s", a.Message)
	} else {
		logError("%s", a.Message)
	}
	if gs.DesktopNotifications {
		notifyDesktop(windowTitle, a.Message)
	}
}
