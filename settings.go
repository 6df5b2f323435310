package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gridchat/client"
	"gridchat/world"
)

const SETTINGS_VERSION = 1

const settingsFile = "settings.json"

// dataDirPath holds settings and other per-user files.
var dataDirPath = "data"

var gs settings = gsdef

// settingsDirty marks unsaved changes; Update flushes them at most once a
// second.
var settingsDirty bool

var gsdef settings = settings{
	Version: SETTINGS_VERSION,

	Host:             "localhost:8081",
	SyncIntervalMS:   150,
	RequestTimeoutMS: 5000,
	TickRate:         50,
	Step:             world.DefaultStep,
	SpriteFetchers:   4,

	WindowWidth:  initialWindowW,
	WindowHeight: initialWindowH,
	Theme:        "",

	LabelFontSize:        15,
	DesktopNotifications: true,
}

type settings struct {
	Version int

	Host             string
	SyncIntervalMS   int
	RequestTimeoutMS int
	TickRate         int
	Step             float64
	SpriteFetchers   int

	WindowWidth  int
	WindowHeight int
	// Theme is "dark", "light", or empty to follow the desktop.
	Theme string

	LabelFontSize        float64
	DesktopNotifications bool
}

func loadSettings() bool {
	path := filepath.Join(dataDirPath, settingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		gs = gsdef
		return false
	}
	tmp := gsdef
	if err := json.Unmarshal(data, &tmp); err != nil {
		logWarn("settings: %v", err)
		gs = gsdef
		return false
	}
	if tmp.Version != SETTINGS_VERSION {
		gs = gsdef
		return false
	}
	gs = tmp
	gs.normalize()
	return true
}

// normalize replaces out-of-range values with defaults.
func (s *settings) normalize() {
	if s.Host == "" {
		s.Host = gsdef.Host
	}
	if s.SyncIntervalMS < 10 {
		s.SyncIntervalMS = gsdef.SyncIntervalMS
	}
	if s.RequestTimeoutMS < 0 {
		s.RequestTimeoutMS = gsdef.RequestTimeoutMS
	}
	if s.TickRate < 1 || s.TickRate > 240 {
		s.TickRate = gsdef.TickRate
	}
	if s.Step <= 0 || s.Step > 1 {
		s.Step = gsdef.Step
	}
	if s.SpriteFetchers < 1 {
		s.SpriteFetchers = gsdef.SpriteFetchers
	}
	if s.WindowWidth < 512 {
		s.WindowWidth = initialWindowW
	}
	if s.WindowHeight < 384 {
		s.WindowHeight = initialWindowH
	}
	if s.LabelFontSize < 6 {
		s.LabelFontSize = gsdef.LabelFontSize
	}
}

func saveSettings() {
	data, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		logError("save settings: %v", err)
		return
	}
	if err := os.MkdirAll(dataDirPath, 0755); err != nil {
		logError("save settings: %v", err)
		return
	}
	path := filepath.Join(dataDirPath, settingsFile)
	if err := os.WriteFile(path+".tmp", data, 0644); err != nil {
		logError("save settings: %v", err)
		return
	}
	if err := os.Rename(path+".tmp", path); err != nil {
		logError("save settings: %v", err)
	}
}

// sessionConfig derives the session configuration from the settings.
func sessionConfig() client.Config {
	cfg := client.DefaultConfig
	cfg.Grid = world.Grid{W: screenW / cellSize, H: gridH / cellSize}
	cfg.SyncInterval = time.Duration(gs.SyncIntervalMS) * time.Millisecond
	cfg.RequestTimeout = time.Duration(gs.RequestTimeoutMS) * time.Millisecond
	return cfg
}
