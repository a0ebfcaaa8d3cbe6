package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/segfal/whiteboard/internal/client"
	"github.com/segfal/whiteboard/internal/protocol"
)

// Dev client: joins a room, prints everything the server relays and sends
// stdin lines as chat. Useful for poking at a running server by hand.
func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	url := os.Getenv("WHITEBOARD_URL")
	if url == "" {
		url = "ws://localhost:8080/ws"
	}
	roomID := os.Getenv("WHITEBOARD_ROOM")
	if roomID == "" {
		roomID = "DEV001"
	}

	c := client.New(client.Config{
		URL:        url,
		Room:       roomID,
		MaxRetries: 5,
		Backoff:    2 * time.Second,
		Codec:      client.NewMemoryCanvas(),
		Logger:     logger,
		Handlers: client.Handlers{
			OnUserList: func(p protocol.UserList) {
				fmt.Printf("room %s members: %v\n", p.RoomID, p.Users)
			},
			OnUserJoined: func(p protocol.UserJoined) {
				fmt.Printf("+ %s joined (%s)\n", p.UserID, p.Color)
			},
			OnUserLeft: func(p protocol.UserLeft) {
				fmt.Printf("- %s left\n", p.UserID)
			},
			OnChat: func(p protocol.ChatOutbound) {
				fmt.Printf("[%s] %s\n", p.UserID, p.Message)
			},
			OnDraw: func(event string, ev protocol.DrawEvent) {
				fmt.Printf("%s from %s at (%.0f, %.0f)\n", event, ev.UserID, ev.X, ev.Y)
			},
			OnClear: func() {
				fmt.Println("canvas cleared")
			},
			OnStateReceived: func(snapshot string) {
				fmt.Printf("received snapshot (%d bytes)\n", len(snapshot))
			},
		},
	})

	if err := c.Connect(); err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer c.Close()

	fmt.Printf("connected to %s, room %s; type to chat\n", url, roomID)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := c.SendChat(line); err != nil {
			logger.Warn("chat dropped", zap.Error(err))
		}
	}
}
