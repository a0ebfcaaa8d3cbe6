package rest

import (
	"go.uber.org/zap"

	"github.com/segfal/whiteboard/internal/relay"
)

type Config struct {
	// Port is the port where the server will listen
	Port int

	// AllowedOrigins lists origins accepted for cross-origin websocket
	// upgrades. Empty means allow all (local development).
	AllowedOrigins []string

	// Relay is the synchronization layer new connections are wired into.
	Relay *relay.Relay

	Logger *zap.Logger
}
