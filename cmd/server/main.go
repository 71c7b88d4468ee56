package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"flight-dynamics/internal/api"
	"flight-dynamics/internal/config"
	"flight-dynamics/internal/influx"
	"flight-dynamics/internal/logging"
	"flight-dynamics/internal/sim"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	configFile := flags.StringP("config", "c", "", "Path to a JSON or YAML config file")
	flags.IntP("port", "p", 8080, "Port to listen on")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	_ = flags.Parse(os.Args[1:])

	if err := config.Load(*configFile); err != nil {
		bootLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	// explicit flags win over file and environment
	_ = viper.BindPFlag("server.port", flags.Lookup("port"))
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))

	logger, closeLog, err := logging.Setup(config.GetLogConfig())
	if err != nil {
		bootLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
		bootLog.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer func() { _ = closeLog() }()

	if f := config.ConfigFile(); f != "" {
		logger.Info().Str("file", f).Msg("Loaded config")
	} else {
		logger.Info().Msg("No config file given, using defaults")
	}

	simCfg, err := config.GetSimConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid simulation config")
	}
	simCfg.Logger = logger

	simEngine, err := sim.New(simCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create simulation engine")
	}

	server := api.NewServer(simEngine, logger)
	serverCfg := config.GetServerConfig()
	httpServer := &http.Server{
		Addr:              serverCfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// stopping the engine closes every stream subscription so Shutdown is not held open
	httpServer.RegisterOnShutdown(cancel)

	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		if err := simEngine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("simulation error")
		}
	}()

	if ic := config.GetInfluxConfig(); ic.Enabled {
		sink, err := influx.Connect(ic, logger)
		if err != nil {
			logger.Error().Err(err).Msg("InfluxDB sink disabled")
		} else {
			defer sink.Close()
			go sink.Run(ctx, simEngine)
		}
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	cancel()
	<-simDone

	logger.Info().Msg("Shutdown complete")
}
