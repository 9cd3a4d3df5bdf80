// Package main provides the track display application
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/micutio/trackspottr/internal"
	"github.com/micutio/trackspottr/tickerapp"
	"github.com/micutio/trackspottr/tuiapp"
)

const (
	// thisAppName is the name of this application as shown on notifications.
	thisAppName = "trackspottr"
)

type arguments struct {
	isUseTicker bool
	configPath  string
	server      string
	listen      string
	latLon      []float64
	logLevel    string
}

func main() {
	var args arguments
	setupCommandLineFlags(&args)

	// Parse all arguments provided to the program on launch.
	pflag.Parse()

	cfg, err := buildConfig(&args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", thisAppName, err)
		os.Exit(2) //nolint:mnd // usage error
	}

	var logParams internal.LogParams
	if args.isUseTicker {
		logParams = internal.TickerLogParams()
	} else {
		logParams = internal.TUILogParams(cfg.Log)
	}

	session, err := internal.NewSession(thisAppName, cfg, logParams)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", thisAppName, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	if args.isUseTicker {
		err = tickerapp.Run(ctx, session)
	} else {
		err = tuiapp.Run(ctx, session)
	}
	stop()

	if closeErr := session.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", thisAppName, closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", thisAppName, err)
		os.Exit(1)
	}
}

// buildConfig loads the configuration file, if any, and lets the command line override it.
func buildConfig(args *arguments) (internal.Config, error) {
	cfg := internal.DefaultConfig()
	if args.configPath != "" {
		loaded, err := internal.LoadConfig(args.configPath)
		if err != nil {
			return internal.Config{}, err
		}
		cfg = loaded
	}

	if pflag.CommandLine.Changed("server") {
		cfg.Server.URL = args.server
	}
	if pflag.CommandLine.Changed("listen") {
		cfg.Listen = args.listen
	}
	if pflag.CommandLine.Changed("log-level") {
		cfg.Log.Level = args.logLevel
	}
	if pflag.CommandLine.Changed("latlon") {
		if len(args.latLon) != 2 { //nolint:mnd // lat,lon
			return internal.Config{}, fmt.Errorf("--latlon expects two values, got %d", len(args.latLon))
		}
		cfg.Home = internal.HomeConfig{Lat: args.latLon[0], Lon: args.latLon[1]}
	}

	if err := cfg.Validate(); err != nil {
		return internal.Config{}, err
	}
	return cfg, nil
}

func setupCommandLineFlags(args *arguments) {
	// Whether to launch the Ticker or TUI app.
	pflag.BoolVarP(
		&args.isUseTicker,
		"ticker",
		"t",
		false,
		"print track updates on the command line without TUI")
	pflag.Lookup("ticker").NoOptDefVal = "true"

	pflag.StringVarP(
		&args.configPath,
		"config",
		"c",
		"",
		"YAML configuration file")

	pflag.StringVarP(
		&args.server,
		"server",
		"s",
		"",
		"base URL of the tracking server API, e.g. http://localhost:8080/api")

	pflag.StringVar(
		&args.listen,
		"listen",
		"",
		"serve /healthz and /display on this address, e.g. 127.0.0.1:8090")

	// Observer location, provided as lat,lon coordinates
	pflag.Float64SliceVarP(
		&args.latLon,
		"latlon",
		"l",
		[]float64{0, 0},
		"observer location used for range and bearing")

	pflag.StringVar(
		&args.logLevel,
		"log-level",
		"info",
		"log level: debug, info, warn or error")
}
