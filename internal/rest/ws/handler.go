package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/segfal/whiteboard/internal/relay"
)

// WebSocketHandler upgrades HTTP connections and wires each one into the
// relay as a new member.
type WebSocketHandler struct {
	upgrader *websocket.Upgrader
	relay    *relay.Relay
	limiter  *IPRateLimit
	logger   *zap.Logger
}

func NewWebSocketHandler(r *relay.Relay, allowedOrigins []string, limiter *IPRateLimit, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		relay:   r,
		limiter: limiter,
		logger:  logger,
	}
}

// originChecker allows everything when no origins are configured (local
// development) and exact matches otherwise. Non-browser clients send no
// Origin header and are always allowed.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if origin == strings.TrimSpace(a) {
				return true
			}
		}
		return false
	}
}

func (ws *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !ws.limiter.Allow(ip) {
		ws.logger.Warn("connection rate limit exceeded", zap.String("ip", ip))
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	memberID := newMemberID()
	c := newClient(memberID, conn, ws.relay, ws.logger)
	ws.relay.Register(c)
	ws.logger.Info("connection established",
		zap.String("member", memberID), zap.String("ip", ip))

	go c.writePump()
	c.readPump()
	ws.logger.Info("connection closed", zap.String("member", memberID))
}

// newMemberID returns an opaque, unique connection identifier.
func newMemberID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// clientIP uses RemoteAddr only; forwarded headers can be spoofed.
func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
