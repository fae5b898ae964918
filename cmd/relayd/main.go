package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"liveroom/internal/app"
)

func main() {
	addr := flag.String("addr", envOrDefault("RELAY_ADDR", ":8080"), "relay listen address")
	wsPath := flag.String("path", envOrDefault("RELAY_WS_PATH", "/ws"), "websocket handshake path")
	jwtSecret := flag.String("jwt-secret", os.Getenv("RELAY_JWT_SECRET"), "HMAC secret for verifying access tokens")
	sharedSecret := flag.String("shared-secret", os.Getenv("RELAY_SHARED_SECRET"), "bearer secret for the /notify ingress")
	logLevel := flag.String("log-level", envOrDefault("RELAY_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, app.ServerConfig{
		Addr:         *addr,
		WSPath:       *wsPath,
		JWTSecret:    *jwtSecret,
		SharedSecret: *sharedSecret,
		LogLevel:     *logLevel,
	})
	if err != nil {
		logrus.WithError(err).Fatal("relay startup failed")
	}

	logrus.WithFields(logrus.Fields{
		"addr": handle.Addr(),
		"path": *wsPath,
	}).Info("relay listening")

	if err := handle.Wait(); err != nil {
		logrus.WithError(err).Fatal("relay exited")
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
