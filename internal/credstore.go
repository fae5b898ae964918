package internal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// CredentialPair is the access/refresh token pair issued by the auth
// service. Exactly one valid pair exists per session.
type CredentialPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CredentialStore holds the current pair for the whole process. It is
// mutated only by login, refresh and logout; replacement and clearing are
// atomic with respect to concurrent readers.
type CredentialStore struct {
	mu   sync.RWMutex
	pair CredentialPair
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

func (s *CredentialStore) Set(pair CredentialPair) {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
}

func (s *CredentialStore) Clear() {
	s.mu.Lock()
	s.pair = CredentialPair{}
	s.mu.Unlock()
}

func (s *CredentialStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken
}

func (s *CredentialStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.RefreshToken
}

func (s *CredentialStore) Pair() CredentialPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// LoadCredentials reads a pair previously saved with SaveCredentials.
func LoadCredentials(path string) (CredentialPair, error) {
	var pair CredentialPair
	data, err := os.ReadFile(path)
	if err != nil {
		return pair, err
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return pair, err
	}
	if pair.AccessToken == "" {
		return CredentialPair{}, errors.New("credential file incomplete")
	}
	return pair, nil
}

// SaveCredentials writes the pair to disk with a tmp+rename so a crash never
// leaves a half-written file.
func SaveCredentials(path string, pair CredentialPair) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func DeleteCredentials(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
