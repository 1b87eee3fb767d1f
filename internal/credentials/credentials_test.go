package credentials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/couchcryptid/seisreport/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "mq-test-key"

type scriptedAsker struct {
	answer  string
	err     error
	prompts []string
}

func (a *scriptedAsker) Ask(_ context.Context, prompt string) (string, error) {
	a.prompts = append(a.prompts, prompt)
	return a.answer, a.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvider_PromptsOnceAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seisreport", "credentials.env")
	asker := &scriptedAsker{answer: testKey}

	p := NewProvider("", NewStore(path), asker, discardLogger())
	key, err := p.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, key)
	assert.Equal(t, []string{KeyPrompt}, asker.prompts)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	// A second run reads the stored key without prompting.
	again := &scriptedAsker{answer: "should-not-be-used"}
	key, err = NewProvider("", NewStore(path), again, discardLogger()).APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, key)
	assert.Empty(t, again.prompts)
}

func TestProvider_EnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.env")
	require.NoError(t, NewStore(path).Save("stored-key"))
	asker := &scriptedAsker{}

	key, err := NewProvider("env-key", NewStore(path), asker, discardLogger()).APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
	assert.Empty(t, asker.prompts)
}

func TestProvider_BlankKeyStored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.env")
	asker := &scriptedAsker{answer: ""}

	key, err := NewProvider("", NewStore(path), asker, discardLogger()).APIKey(context.Background())
	require.NoError(t, err)
	assert.Empty(t, key)

	stored, ok, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, stored)
}

func TestProvider_AskError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.env")
	asker := &scriptedAsker{err: io.ErrUnexpectedEOF}

	_, err := NewProvider("", NewStore(path), asker, discardLogger()).APIKey(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NoFileExists(t, path)
}

func TestProvider_PersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store := NewStore(filepath.Join(blocker, "credentials.env"))
	_, err := NewProvider("", store, &scriptedAsker{answer: testKey}, discardLogger()).APIKey(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
}

func TestStore_LoadMissingFile(t *testing.T) {
	key, ok, err := NewStore(filepath.Join(t.TempDir(), "absent.env")).Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, key)
}

func TestStore_LoadFileWithoutKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER=value\n"), 0o600))

	_, ok, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RoundTripQuotedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.env")
	weird := "abc=def#ghi"
	require.NoError(t, NewStore(path).Save(weird))

	key, ok, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, weird, key)
}
