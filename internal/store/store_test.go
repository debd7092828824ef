package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/steelman/internal/config"
	"github.com/fyrsmithlabs/steelman/internal/logging"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"badger", func(t *testing.T) Store {
			s, err := OpenBadger(InMemoryBadgerConfig())
			require.NoError(t, err)
			return s
		}},
		{"badger-disk", func(t *testing.T) Store {
			cfg := DefaultBadgerConfig()
			cfg.Path = filepath.Join(t.TempDir(), "badger")
			s, err := OpenBadger(cfg)
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
			require.NoError(t, err)
			return s
		}},
	}
}

func TestStore_Contract(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			_, err := s.Load(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Save(ctx, "last_phase", []byte("DISCUSSION")))
			got, err := s.Load(ctx, "last_phase")
			require.NoError(t, err)
			assert.Equal(t, []byte("DISCUSSION"), got)

			require.NoError(t, s.Save(ctx, "last_phase", []byte("SUMMARY")))
			got, err = s.Load(ctx, "last_phase")
			require.NoError(t, err)
			assert.Equal(t, []byte("SUMMARY"), got, "save overwrites")

			require.NoError(t, s.Delete(ctx, "last_phase"))
			_, err = s.Load(ctx, "last_phase")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, s.Delete(ctx, "never-existed"), "deleting a missing key is not an error")
		})
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()
			ctx := context.Background()

			var g errgroup.Group
			for i := 0; i < 20; i++ {
				g.Go(func() error {
					return s.Save(ctx, fmt.Sprintf("k%d", i), []byte(fmt.Sprintf("v%d", i)))
				})
			}
			require.NoError(t, g.Wait())

			for i := 0; i < 20; i++ {
				got, err := s.Load(ctx, fmt.Sprintf("k%d", i))
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("v%d", i), string(got))
			}
		})
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, m.Save(ctx, "k", buf))
	buf[0] = 'x'

	got, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[0] = 'y'
	again, _ := m.Load(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Save(context.Background(), "k", nil), ErrClosed)
	_, err := m.Load(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMemory().Save(ctx, "k", nil), context.Canceled)
}

func TestWithPrefix_IsolatesSessions(t *testing.T) {
	base := NewMemory()
	ctx := context.Background()
	a := WithPrefix(base, "session-a")
	b := WithPrefix(base, "session-b")

	require.NoError(t, a.Save(ctx, "last_phase", []byte("DISCUSSION")))
	_, err := b.Load(ctx, "last_phase")
	assert.ErrorIs(t, err, ErrNotFound)

	raw, err := base.Load(ctx, "session-a:last_phase")
	require.NoError(t, err)
	assert.Equal(t, "DISCUSSION", string(raw))

	require.NoError(t, a.Close())
	assert.NoError(t, base.Save(ctx, "still", []byte("open")), "closing a view leaves the base open")
}

func TestBadger_PersistsAcrossReopen(t *testing.T) {
	cfg := DefaultBadgerConfig()
	cfg.Path = filepath.Join(t.TempDir(), "badger")
	cfg.Logger = logging.NewTestLogger().Logger
	ctx := context.Background()

	s, err := OpenBadger(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "checkpoint_ISSUE_PROPOSAL", []byte(`{"phase":"ISSUE_PROPOSAL"}`)))
	require.NoError(t, s.Close())

	s, err = OpenBadger(cfg)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "checkpoint_ISSUE_PROPOSAL")
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"ISSUE_PROPOSAL"}`, string(got))
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(DefaultBadgerConfig())
	assert.Error(t, err)
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.StoreConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "s.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.StoreConfig{Driver: "redis"}, nil)
	assert.Error(t, err)
}
