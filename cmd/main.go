package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"voicescreen/config"
	"voicescreen/db"
	"voicescreen/form"
	qhttp "voicescreen/http"
	"voicescreen/logging"
	"voicescreen/ml"
	"voicescreen/monitoring"
	"voicescreen/predict"
)

func main() {
	// Look for config in root even if run from cmd/
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if _, err := os.Stat(filepath.Join("..", "config.yaml")); err == nil {
				configPath = filepath.Join("..", "config.yaml")
			}
		}
	}

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	baseDir := filepath.Dir(configPath)
	for _, p := range []*string{&cfg.Model.Path, &cfg.Storage.VisitorFile, &cfg.Storage.AuditFile, &cfg.Storage.SQLitePath, &cfg.Log.File} {
		*p = resolvePath(baseDir, *p)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		JSON:       cfg.Log.JSON,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
	logger.Info("exiting")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schema, err := form.Lookup(cfg.Model.Schema)
	if err != nil {
		return err
	}

	// 2. Load model; a missing artifact is fatal
	model, err := ml.LoadModel(cfg.Model.Type, cfg.Model.Path)
	if err != nil {
		return err
	}
	holder := ml.NewHolder(model)
	logger.Info("model loaded",
		zap.String("type", cfg.Model.Type),
		zap.String("path", cfg.Model.Path),
		zap.String("schema", schema.Name),
	)
	if cfg.Model.Watch {
		watcher := ml.NewWatcher(holder, cfg.Model.Type, cfg.Model.Path, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("model watcher stopped", zap.Error(err))
			}
		}()
	}

	// 3. Open stores
	audit, err := db.OpenAuditLog(cfg.Storage.AuditBackend, cfg.Storage.AuditFile, cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer audit.Close()
	visitors, err := db.NewVisitorStore(cfg.Storage.VisitorFile)
	if err != nil {
		return err
	}
	logger.Info("storage ready",
		zap.String("audit_backend", cfg.Storage.AuditBackend),
		zap.String("visitor_file", cfg.Storage.VisitorFile),
	)

	hub := monitoring.NewHub(logger)
	go hub.Start()
	defer hub.Stop()
	metrics := monitoring.NewMetrics()

	pipeline, err := predict.NewPipeline(holder, audit, visitors, predict.Options{
		CacheSize: cfg.Cache.Size,
		Publisher: hub,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handlers, err := qhttp.NewHandlers(pipeline, schema, qhttp.SupportInfo{
		Email: cfg.Support.Email,
		URL:   cfg.Support.URL,
	}, logger)
	if err != nil {
		return err
	}

	// 4. Start HTTP server
	serverConfig := qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		PredictRate:    cfg.RateLimit.PredictPerSecond,
		PredictBurst:   cfg.RateLimit.Burst,
		Metrics:        metrics,
	}
	server := qhttp.NewServer(serverConfig, qhttp.NewHandler(serverConfig, handlers, hub.HandleWebSocket, logger), logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	return server.Stop()
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
