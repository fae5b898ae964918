package app

import (
	"errors"

	intrnl "liveroom/internal"
)

// RunClient launches the Bubble Tea dashboard with the provided configuration.
func RunClient(cfg ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("server URL is required")
	}
	if cfg.APIBaseURL == "" {
		return errors.New("API base URL is required")
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = DefaultTokenFile()
	}
	return intrnl.RunClient(cfg.ServerURL, cfg.APIBaseURL, cfg.TokenFile, cfg.RoomID)
}
