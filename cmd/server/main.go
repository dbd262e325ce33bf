package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yegors/skywatch/internal/airports"
	"github.com/yegors/skywatch/internal/api"
	"github.com/yegors/skywatch/internal/config"
	"github.com/yegors/skywatch/internal/monitor"
	"github.com/yegors/skywatch/internal/paths"
	"github.com/yegors/skywatch/internal/rules"
	"github.com/yegors/skywatch/internal/storage/sqlite"
	"github.com/yegors/skywatch/internal/websocket"
	"github.com/yegors/skywatch/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Skywatch server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Airport reference data
	curated := make([]airports.Airport, 0, len(cfg.Airports.Curated))
	for _, a := range cfg.Airports.Curated {
		curated = append(curated, airports.Airport{
			Code:        a.Code,
			Name:        a.Name,
			Lat:         a.Lat,
			Lon:         a.Lon,
			ElevationFt: a.ElevationFt,
		})
	}
	airportStore, err := airports.NewStore(curated, cfg.Airports.CSVPath, cfg.Airports.RunwaysPath, cfg.Airports.FallbackRadiusNM, log)
	if err != nil {
		log.Error("Failed to create airport store", logger.Error(err))
		os.Exit(1)
	}

	// Learned path library
	pathLibrary, err := paths.NewStore(paths.Config{
		PathsFile:              cfg.PathLearning.PathsFile,
		TubesFile:              cfg.PathLearning.TubesFile,
		TurnsFile:              cfg.PathLearning.TurnsFile,
		SIDFile:                cfg.PathLearning.SIDFile,
		STARFile:               cfg.PathLearning.STARFile,
		NumSamples:             cfg.PathLearning.NumSamples,
		DefaultWidthNM:         cfg.PathLearning.DefaultWidthNM,
		MinWidthNM:             cfg.PathLearning.MinWidthNM,
		MinTubeMembers:         cfg.PathLearning.MinTubeMembers,
		TubeLateralToleranceNM: cfg.PathLearning.TubeLateralToleranceNM,
		TubeAltToleranceFt:     cfg.PathLearning.TubeAltToleranceFt,
		TurnZoneToleranceNM:    cfg.PathLearning.TurnZoneToleranceNM,
		SIDSTARToleranceNM:     cfg.PathLearning.SIDSTARToleranceNM,
		SIDSTARDefaultWidthNM:  cfg.PathLearning.SIDSTARDefaultWidthNM,
		EmergingBucketSize:     cfg.PathLearning.EmergingBucketSize,
		EmergingSimilarityDeg:  cfg.PathLearning.EmergingSimilarityDeg,
		EmergingBinSeconds:     cfg.PathLearning.EmergingBinSeconds,
	}, log)
	if err != nil {
		log.Error("Failed to load path library", logger.Error(err))
		os.Exit(1)
	}

	// SQLite storage
	dbDir := filepath.Dir(cfg.Storage.SQLitePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", dbDir))
		os.Exit(1)
	}
	trackStorage, err := sqlite.NewTrackStorage(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer trackStorage.Close()
	reportStorage := sqlite.NewReportStorage(trackStorage.GetDB(), log)

	// Rule engine
	engine, err := rules.NewEngine(cfg, airportStore, pathLibrary, trackStorage, log)
	if err != nil {
		log.Error("Failed to create rule engine", logger.Error(err))
		os.Exit(1)
	}

	// WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Monitor
	mon, err := monitor.New(cfg, engine, trackStorage, reportStorage, wsServer, log)
	if err != nil {
		log.Error("Failed to create monitor", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweepInterval := time.Duration(cfg.Monitor.SweepIntervalSeconds) * time.Second
	go mon.Run(ctx, sweepInterval)

	// API router and HTTP server
	router := api.NewRouter(mon, engine, trackStorage, reportStorage, pathLibrary, cfg, log, wsServer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Stop the monitor sweep first so no evaluation starts mid-shutdown.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	} else {
		log.Info("HTTP server shutdown complete")
	}

	log.Info("Server fully stopped")
}
