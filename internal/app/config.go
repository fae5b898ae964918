package app

import (
	"os"
	"path/filepath"
	"runtime"
)

// ServerConfig defines how the relay backend should run.
type ServerConfig struct {
	Addr         string
	WSPath       string
	JWTSecret    string
	SharedSecret string
	LogLevel     string
}

// ClientConfig defines the parameters the TUI dashboard needs.
type ClientConfig struct {
	ServerURL  string
	APIBaseURL string
	RoomID     string
	TokenFile  string
}

// DefaultTokenFile returns a per-user path for the cached credential pair.
func DefaultTokenFile() string {
	if env := os.Getenv("LIVEROOM_TOKEN_FILE"); env != "" {
		return env
	}
	if env := os.Getenv("LIVEROOM_DATA_DIR"); env != "" {
		return filepath.Join(env, "credentials.json")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "liveroom", "credentials.json")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Liveroom", "credentials.json")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Liveroom", "credentials.json")
		}
		return filepath.Join(home, ".local", "share", "liveroom", "credentials.json")
	}
	return filepath.Join(".", ".liveroom", "credentials.json")
}

// NormalizeWSPath guarantees the websocket path starts with '/' and falls
// back to /ws when empty.
func NormalizeWSPath(path string) string {
	if path == "" {
		return "/ws"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
