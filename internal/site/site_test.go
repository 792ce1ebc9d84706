package site

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hscpc/podium/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := store.Open("redis://"+mr.Addr(), store.DBTest)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestEnsureInitialized_CreatesDefault(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	s, err := EnsureInitialized(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, DefaultName, s.Name)

	// The name is persisted for subsequent loads
	name, err := st.Get(ctx, KeyName)
	require.NoError(t, err)
	assert.Equal(t, DefaultName, name)
}

func TestEnsureInitialized_LoadsExisting(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, KeyName, "Regional Qualifier"))

	s, err := EnsureInitialized(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, "Regional Qualifier", s.Name)
}

func TestEnsureInitialized_WipesOnBootstrap(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	// Pre-existing unrelated keys are wiped when the database has no site
	// record. This wipe-on-bootstrap behavior is deliberate: a database
	// without a site record is treated as virgin.
	require.NoError(t, st.Set(ctx, "stale/key", "leftover"))

	_, err := EnsureInitialized(ctx, st)
	require.NoError(t, err)

	_, err = st.Get(ctx, "stale/key")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnsureInitialized_Idempotent(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	first, err := EnsureInitialized(ctx, st)
	require.NoError(t, err)

	// A second call must load, not wipe: data written after bootstrap
	// survives.
	require.NoError(t, st.Set(ctx, "user/abc", "x"))

	second, err := EnsureInitialized(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)

	val, err := st.Get(ctx, "user/abc")
	require.NoError(t, err)
	assert.Equal(t, "x", val)
}
