package main

import (
	"flag"
	"fmt"
	"os"

	"liveroom/internal/app"
)

func main() {
	defaultServer := envOrDefault("LIVEROOM_SERVER", "ws://localhost:8080/ws")
	defaultAPI := envOrDefault("LIVEROOM_API", "http://localhost:3000/api")

	serverURL := flag.String("server", defaultServer, "relay websocket URL (e.g., ws://localhost:8080/ws)")
	apiBaseURL := flag.String("api", defaultAPI, "REST API base URL")
	tokenFile := flag.String("token-file", envOrDefault("LIVEROOM_TOKEN_FILE", ""), "path to the cached credential file")
	flag.Parse()

	args := flag.Args()
	var roomID string
	if len(args) >= 1 {
		roomID = args[0]
	}

	cfg := app.ClientConfig{
		ServerURL:  *serverURL,
		APIBaseURL: *apiBaseURL,
		RoomID:     roomID,
		TokenFile:  *tokenFile,
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
