package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"orthorec/db"
	qhttp "orthorec/http"
	"orthorec/logging"
	"orthorec/ml"
	"orthorec/monitoring"
	"orthorec/prosthesis"
)

type Config struct {
	Http struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Dataset struct {
		Path  string `yaml:"path"`
		Watch bool   `yaml:"watch"`
	} `yaml:"dataset"`
	ML struct {
		Seed      int64  `yaml:"seed"`
		Epochs    int    `yaml:"epochs"`
		CacheSize int    `yaml:"cache_size"`
		ModelsDir string `yaml:"models_dir"`
	} `yaml:"ml"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logging.New(config.Log.Level, config.Log.File)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer logger.Sync()

	// 2. Load reference dataset (bundled unless overridden)
	var dataset *prosthesis.Dataset
	if config.Dataset.Path != "" {
		dataset, err = prosthesis.LoadFile(config.Dataset.Path)
	} else {
		dataset, err = prosthesis.Load()
	}
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err))
	}

	// 3. Initialize database
	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// 4. Build and train the recommendation engine. A training failure
	// is logged, not fatal: the rule-based fallback keeps serving.
	serviceConfig := ml.DefaultServiceConfig()
	if config.ML.Seed != 0 {
		serviceConfig.Network.Seed = config.ML.Seed
	}
	if config.ML.Epochs > 0 {
		serviceConfig.Network.Epochs = config.ML.Epochs
	}
	if config.ML.CacheSize > 0 {
		serviceConfig.CacheSize = config.ML.CacheSize
	}
	engine, err := ml.NewService(dataset, serviceConfig, logger)
	if err != nil {
		logger.Fatal("failed to build engine", zap.Error(err))
	}
	if config.ML.ModelsDir != "" {
		// Weights written by cmd/train_model skip startup training.
		if err := preloadModels(engine, config.ML.ModelsDir); err != nil {
			logger.Warn("model preload failed, training at startup", zap.Error(err))
			if err := engine.Initialize(); err != nil {
				logger.Warn("model training failed, serving rule-based results", zap.Error(err))
			}
		} else {
			logger.Info("models preloaded", zap.String("dir", config.ML.ModelsDir))
		}
	} else if err := engine.Initialize(); err != nil {
		logger.Warn("model training failed, serving rule-based results", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Monitoring hub
	metrics := monitoring.NewMetrics()
	engine.OnCacheHit(metrics.RecordCacheHit)
	hub := monitoring.NewHub(metrics, logger)
	go hub.Run(ctx)

	// 6. Optional dataset watcher: retrain when the override changes
	if config.Dataset.Watch && config.Dataset.Path != "" {
		watcher, err := prosthesis.NewWatcher(config.Dataset.Path,
			func(updated *prosthesis.Dataset) {
				if err := engine.Reload(updated); err != nil {
					logger.Warn("dataset reload failed", zap.Error(err))
					return
				}
				logger.Info("dataset reloaded and models retrained")
			},
			func(err error) {
				logger.Warn("dataset watcher error", zap.Error(err))
			})
		if err != nil {
			logger.Warn("failed to start dataset watcher", zap.Error(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	// 7. Start HTTP server
	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	handlers := qhttp.NewHandlers(engine, metrics, hub, logger)
	server := qhttp.NewServer(serverConfig, handlers, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 8. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	cancel()
	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func preloadModels(engine *ml.Service, dir string) error {
	material := &ml.Network{}
	if err := material.Load(filepath.Join(dir, "material.json")); err != nil {
		return err
	}
	fixation := &ml.Network{}
	if err := fixation.Load(filepath.Join(dir, "fixation.json")); err != nil {
		return err
	}
	engine.SetClassifiers(material, fixation)
	return nil
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
