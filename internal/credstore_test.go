package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCredentialsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	pair := CredentialPair{AccessToken: "at", RefreshToken: "rt"}

	if err := SaveCredentials(path, pair); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadCredentials(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != pair {
		t.Errorf("round trip mismatch: %+v", loaded)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("credential file mode %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadCredentialsRejectsIncompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"refresh_token":"rt"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCredentials(path); err == nil {
		t.Error("expected error for a file without an access token")
	}
}

func TestDeleteCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := SaveCredentials(path, CredentialPair{AccessToken: "at"}); err != nil {
		t.Fatal(err)
	}
	if err := DeleteCredentials(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}
	// deleting again, or an empty path, is a no-op
	if err := DeleteCredentials(path); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if err := DeleteCredentials(""); err != nil {
		t.Errorf("empty path delete: %v", err)
	}
}
