package testutil

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/app/localstore"
)

// SetupLocalStore opens a throwaway local store backed by a SQLite file
// in the test's temp directory.
func SetupLocalStore(t *testing.T) *localstore.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "local.db")
	store, err := localstore.Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
