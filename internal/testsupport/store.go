package testsupport

import (
	"testing"

	"scribe/internal/config"
	"scribe/internal/ledger"
)

// MustOpenLedger opens the run ledger for the test config and closes it when
// the test finishes.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close ledger: %v", err)
		}
	})
	return store
}
