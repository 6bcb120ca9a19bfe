package main

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nathoo/questbot/config"
	"github.com/nathoo/questbot/engine/chattest"
	"github.com/nathoo/questbot/engine/encounters"
	"github.com/nathoo/questbot/loader"
	"github.com/nathoo/questbot/store/memory"
)

func TestNewEngine_RegistersThroughEngine(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	a := &app{
		cfg:      config.Defaults(),
		logger:   logger,
		settings: config.NewChannelSettings(nil, logger),
		content:  &loader.Content{},
		store:    memory.New(),
	}

	eng, err := a.newEngine(&chattest.Recorder{}, time.Unix(0, 0).UTC(), "#streamer")
	if err != nil {
		t.Fatal(err)
	}

	registered := logs.FilterMessage("encounter registered").All()
	if got, want := len(registered), len(encounters.Catalog()); got != want {
		t.Fatalf("logged %d registrations, want %d", got, want)
	}
	if got := eng.Registry().MaxPartySize(); got != 5 {
		t.Errorf("max party size = %d, want 5", got)
	}
}
