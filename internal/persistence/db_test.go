package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "arena.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedAgent(t *testing.T, db *DB, a *agent.Agent) {
	t.Helper()
	if a.ModelID == "" {
		a.ModelID = "haiku"
	}
	if a.Archetype == "" {
		a.Archetype = agent.ArchetypeGrinder
	}
	a.IsActive = true
	require.NoError(t, db.Save(context.Background(), a))
}
