package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"chat-client/internal/models"
)

// FileCache is the durable local side-cache: a directory holding the
// session record and the username -> profile mapping as JSON files. It lets
// a restarted client skip redundant profile fetches and restore its session.
type FileCache struct {
	dir string
	mu  sync.Mutex
}

const (
	profilesFile = "profiles.json"
	sessionFile  = "session.json"
)

// NewFileCache creates the cache directory if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// LoadProfiles reads the persisted profile mapping. A missing file yields an
// empty map.
func (c *FileCache) LoadProfiles() (map[string]models.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.dir, profilesFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]models.Profile{}, nil
	}
	if err != nil {
		return nil, err
	}

	profiles := map[string]models.Profile{}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// SaveProfiles writes the full profile mapping atomically.
func (c *FileCache) SaveProfiles(profiles map[string]models.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(profiles)
	if err != nil {
		return err
	}
	return c.writeFile(profilesFile, data)
}

// SaveSession persists the logged-in user so a restart can resume without
// logging in again.
func (c *FileCache) SaveSession(user models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.writeFile(sessionFile, data)
}

// LoadSession returns the persisted session record, or ok=false when none
// exists.
func (c *FileCache) LoadSession() (models.User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.dir, sessionFile))
	if errors.Is(err, os.ErrNotExist) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

// ClearSession removes the session record. Clearing an absent record is a
// no-op so logout can double-clear safely.
func (c *FileCache) ClearSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(filepath.Join(c.dir, sessionFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) writeFile(name string, data []byte) error {
	path := filepath.Join(c.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
