// ABOUTME: Singleton site record: bootstrap state for one podium database
// ABOUTME: Created on first access, loaded on every subsequent call

package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hscpc/podium/internal/store"
)

// KeyName is the store key holding the site display name. Its presence is
// the marker that the database has been bootstrapped.
const KeyName = "site/name"

// DefaultName is the site name written on first bootstrap.
const DefaultName = "HSCPC"

// Site is the singleton site configuration. Exactly one exists per logical
// database.
type Site struct {
	Name string
}

// EnsureInitialized loads the site record, bootstrapping the database first
// if no site exists yet. Bootstrap wipes the entire logical database, not
// just the site keys, before writing the default name.
func EnsureInitialized(ctx context.Context, st *store.Store) (*Site, error) {
	name, err := st.Get(ctx, KeyName)
	if errors.Is(err, store.ErrNotFound) {
		if err := st.Reset(ctx); err != nil {
			return nil, fmt.Errorf("bootstrapping site: %w", err)
		}
		if err := st.Set(ctx, KeyName, DefaultName); err != nil {
			return nil, fmt.Errorf("bootstrapping site: %w", err)
		}
		slog.Default().With("component", "site").Info("site bootstrapped", "name", DefaultName)
		return &Site{Name: DefaultName}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading site: %w", err)
	}
	return &Site{Name: name}, nil
}
