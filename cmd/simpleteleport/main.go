/*
Simpleteleport runs the Simple Teleport plugin for a Brickadia server manager.

Players place a brick whose interact component prints "teleport:X,Y,Z" to the
console; interacting with it moves them there. Prefix an axis with "~" to move
relative to the player's current position on that axis. The plugin also answers
the chat commands /helpsimpleteleport and /getposition.

The host talks to the plugin with JSON-RPC 2.0. By default the messages travel
one per line over stdin and stdout, so logs go to stderr. With --listen the
plugin instead waits for the host to connect over a websocket.

Usage:

	simpleteleport [flags]

The flags are:

	-v, --version
		Print the version and exit.

	-c, --config FILE
		Read YAML configuration from FILE. Defaults to the value of the
		SIMPLETELEPORT_CONFIG environment variable, and to built-in defaults
		if that is empty too.

	--log-level LEVEL
		Override log.level: debug, info, warn or error.

	-l, --listen ADDRESS
		Serve the host over a websocket on ADDRESS instead of stdio.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/zeusync/simpleteleport/internal/config"
	"github.com/zeusync/simpleteleport/internal/core/observability/log"
	"github.com/zeusync/simpleteleport/internal/host/rpc"
	"github.com/zeusync/simpleteleport/internal/injector"
)

const version = "1.0.0"

const (
	ExitSuccess = iota
	ExitConfigError
	ExitServeError
)

var (
	flagVersion  = pflag.BoolP("version", "v", false, "Print the version and exit.")
	flagConfig   = pflag.StringP("config", "c", "", "Read YAML configuration from the given file.")
	flagLogLevel = pflag.String("log-level", "", "Override the configured log level.")
	flagListen   = pflag.StringP("listen", "l", "", "Serve the host over a websocket on the given address.")
)

func main() {
	pflag.Parse()
	if *flagVersion {
		fmt.Println("simpleteleport " + version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(ExitConfigError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopCh
		cancel()
	}()

	code := run(ctx, cfg)
	cancel()
	os.Exit(code)
}

func loadConfig() (config.Config, error) {
	path := *flagConfig
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if *flagLogLevel != "" {
		cfg.Log.Level = *flagLogLevel
	}
	if *flagListen != "" {
		cfg.Transport.Mode = config.TransportWebSocket
		cfg.Transport.Listen = *flagListen
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) int {
	transport, err := openTransport(ctx, cfg.Transport)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		return ExitServeError
	}

	app, err := injector.InitializeApp(cfg, transport)
	if err != nil {
		_ = transport.Close()
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		return ExitConfigError
	}
	defer func() { _ = app.Logger.Sync() }()

	logger := app.Logger.With(log.String("component", "main"))
	logger.Info("Serving host",
		log.String("version", version),
		log.String("transport", string(cfg.Transport.Mode)))

	err = app.Client.Serve(ctx, app.Plugin)
	if stopErr := app.Plugin.Stop(context.Background()); stopErr != nil {
		logger.Warn("Plugin stop failed", log.Error(stopErr))
	}
	if err != nil {
		logger.Error("Host connection failed", log.Error(err))
		return ExitServeError
	}

	logger.Info("Host connection closed")
	return ExitSuccess
}

func openTransport(ctx context.Context, cfg config.Transport) (rpc.Transport, error) {
	switch cfg.Mode {
	case config.TransportWebSocket:
		fmt.Fprintf(os.Stderr, "waiting for host on ws://%s%s\n", cfg.Listen, cfg.Path)
		ws, err := rpc.Listen(ctx, cfg.Listen, cfg.Path)
		if err != nil {
			return nil, err
		}
		return ws, nil
	default:
		return rpc.NewStdioTransport(os.Stdin, os.Stdout), nil
	}
}
