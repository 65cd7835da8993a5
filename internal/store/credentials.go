package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// ErrStorageDirRequired is returned when no storage directory is provided.
var ErrStorageDirRequired = errors.New("storage directory not provided")

const credentialsFile = "session.json"

// Credentials is the durable session state: the token pair plus the
// serialized user record. The user record stays raw here; the session
// service owns its shape.
type Credentials struct {
	AccessToken  string          `json:"accessToken,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
}

// HasSession reports whether the stored state amounts to a restorable
// session. The access token and the user record are both required; a
// missing refresh token only disables silent refresh.
func (c Credentials) HasSession() bool {
	return c.AccessToken != "" && len(c.User) > 0
}

// CredentialStore persists the credential pair and user record as a single
// JSON document. It is the one writer of that file; the in-memory copy is
// the source of truth between saves.
type CredentialStore struct {
	mu    sync.RWMutex
	fs    afero.Fs
	path  string
	creds Credentials
}

// NewCredentialStore opens (or initializes) the credential file inside dir
// on the given filesystem. A malformed file is discarded and treated as "no
// session" rather than failing the restore.
func NewCredentialStore(fs afero.Fs, dir string) (*CredentialStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrStorageDirRequired
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	s := &CredentialStore{
		fs:   fs,
		path: filepath.Join(dir, credentialsFile),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns a copy of the stored credentials.
func (s *CredentialStore) Load() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// AccessToken returns the stored access token, or "".
func (s *CredentialStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

// RefreshToken returns the stored refresh token, or "".
func (s *CredentialStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

// Save replaces the stored credentials and writes them through to disk.
func (s *CredentialStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return s.saveLocked()
}

// SetAccessToken replaces only the access token, keeping the refresh token
// and the user record. This is the silent-refresh write path.
func (s *CredentialStore) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AccessToken = token
	return s.saveLocked()
}

// SetUser replaces only the serialized user record.
func (s *CredentialStore) SetUser(user json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.User = user
	return s.saveLocked()
}

// Clear wipes the credentials in memory and removes the file.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	if err := s.fs.Remove(s.path); err != nil {
		if exists, _ := afero.Exists(s.fs, s.path); exists {
			return fmt.Errorf("remove credentials file: %w", err)
		}
	}
	return nil
}

func (s *CredentialStore) saveLocked() error {
	data, err := json.MarshalIndent(s.creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

func (s *CredentialStore) load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		// No file yet, start fresh.
		return nil
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// Malformed state is unrecoverable; drop it so the session
		// restores as signed out instead of erroring forever.
		_ = s.fs.Remove(s.path)
		return nil
	}
	s.creds = creds
	return nil
}
