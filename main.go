package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/cubes/engine"
	"github.com/spaghettifunk/cubes/engine/config"
	"github.com/spaghettifunk/cubes/engine/core"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err.Error())
		os.Exit(1)
	}

	app, err := engine.New(cfg)
	if err != nil {
		core.LogFatal("failed to create application: %s", err.Error())
		os.Exit(1)
	}

	if err := app.Initialize(); err != nil {
		core.LogFatal("failed to initialize application: %s", err.Error())
		os.Exit(1)
	}

	// Ctrl-C from the terminal shuts down cleanly like a window close.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}()

	if err := app.Run(); err != nil {
		core.LogError("application stopped with error: %s", err.Error())
	}

	if err := app.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err.Error())
		os.Exit(1)
	}
}
