package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/segfal/whiteboard/cmd"
	"github.com/segfal/whiteboard/internal/protocol"
	"github.com/segfal/whiteboard/internal/relay"
	"github.com/segfal/whiteboard/internal/rest"
	"github.com/segfal/whiteboard/internal/room"
	"github.com/segfal/whiteboard/internal/utils"
)

func main() {
	_ = godotenv.Load()

	bootLogger, _ := zap.NewDevelopment()

	configPath := os.Getenv("WHITEBOARD_CONFIG")
	if configPath == "" {
		configPath = "config.yml"
	}

	config := cmd.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		parsed, err := cmd.ParseConfig(configPath, bootLogger)
		if err != nil {
			bootLogger.Fatal("failed to parse config", zap.Error(err))
		}
		config = parsed
	} else {
		bootLogger.Info("no config file found, using defaults", zap.String("path", configPath))
	}

	logger, err := utils.NewCustomLogger(utils.ParseLevel(config.Apps.LogLevel), false)
	if err != nil {
		bootLogger.Fatal("failed to create logger", zap.Error(err))
	}
	defer logger.Sync()

	registry := room.NewRegistry(logger)
	validator := protocol.NewValidator()
	relayApp := relay.NewRelay(
		registry,
		validator,
		time.Duration(config.Apps.Relay.StateRequestTimeoutSeconds)*time.Second,
		logger,
	)
	restApp := rest.NewRest(&rest.Config{
		Port:           config.Apps.Rest.Port,
		AllowedOrigins: config.Apps.Rest.AllowedOrigins,
		Relay:          relayApp,
		Logger:         logger,
	})

	appsManager := cmd.NewAppsManager(logger)

	appsManager.Register(cmd.RelayApp, relayApp)
	appsManager.Register(cmd.RestApp, restApp)
	appsManager.RunAll()
	appsManager.WaitForShutdown()
}
