// Package credentials supplies the MapQuest API key, asking for it once and
// remembering it in a dotenv file for later runs.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/seisreport/internal/domain"
	"github.com/joho/godotenv"
)

// KeyName is the dotenv key holding the MapQuest API key.
const KeyName = "MAPQUEST_API_KEY"

// KeyPrompt is shown when no key is stored yet.
const KeyPrompt = "Please paste in your Mapquest API key (you only need to do this the first time): "

// Asker reads one line of user input after showing a prompt.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Store reads and writes the key in a dotenv file.
type Store struct {
	path string
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load returns the stored key. ok is false when the file or the key is missing.
func (s *Store) Load() (key string, ok bool, err error) {
	env, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read credentials %s: %w", s.path, err)
	}
	key, ok = env[KeyName]
	return key, ok, nil
}

// Save writes the key, creating the parent directory as needed. The file is
// left readable by the owner only. Failures wrap domain.ErrPersistence.
func (s *Store) Save(key string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: create directory: %w", domain.ErrPersistence, err)
	}
	if err := godotenv.Write(map[string]string{KeyName: key}, s.path); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrPersistence, s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", domain.ErrPersistence, s.path, err)
	}
	return nil
}

// Provider resolves the API key from the environment, the store, or the user.
type Provider struct {
	envKey string
	store  *Store
	asker  Asker
	logger *slog.Logger
}

// NewProvider creates a Provider. envKey takes precedence over the store when
// non-empty.
func NewProvider(envKey string, store *Store, asker Asker, logger *slog.Logger) *Provider {
	return &Provider{
		envKey: envKey,
		store:  store,
		asker:  asker,
		logger: logger,
	}
}

// APIKey returns the key, prompting and persisting it on first use.
// A blank key is returned as is; it fails later at geocoding time.
func (p *Provider) APIKey(ctx context.Context) (string, error) {
	if p.envKey != "" {
		p.logger.Debug("using api key from environment")
		return p.envKey, nil
	}

	key, ok, err := p.store.Load()
	if err != nil {
		return "", err
	}
	if ok {
		p.logger.Debug("using stored api key", "path", p.store.Path())
		return key, nil
	}

	key, err = p.asker.Ask(ctx, KeyPrompt)
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}
	if err := p.store.Save(key); err != nil {
		return "", err
	}
	p.logger.Info("stored api key", "path", p.store.Path())
	return key, nil
}
