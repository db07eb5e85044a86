package database

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mylibrary/mylibrary/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "test.db")
	return cfg
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("in-memory databases enforce foreign keys", func(tt *testing.T) {
		tt.Parallel()
		db, err := New(config.NewForTest())
		require.NoError(tt, err)
		defer db.Close()

		var enabled int
		require.NoError(tt, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
		assert.Equal(tt, 1, enabled)
	})

	t.Run("file databases use WAL", func(tt *testing.T) {
		tt.Parallel()
		db, err := New(newTestConfig(tt))
		require.NoError(tt, err)
		defer db.Close()

		var mode string
		require.NoError(tt, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
		assert.Equal(tt, "wal", mode)
	})
}

func TestConcurrentUpserts(t *testing.T) {
	t.Parallel()

	db, err := New(newTestConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE positions (
		book_id INTEGER PRIMARY KEY,
		location TEXT NOT NULL
	)`)
	require.NoError(t, err)

	const workers = 10
	const writes = 40

	var wg sync.WaitGroup
	var failures atomic.Int32
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				_, err := db.Exec(
					"INSERT INTO positions (book_id, location) VALUES (?, ?) ON CONFLICT (book_id) DO UPDATE SET location = excluded.location",
					id, fmt.Sprintf("loc-%d", i),
				)
				if err != nil {
					failures.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int32(0), failures.Load())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM positions").Scan(&count))
	assert.Equal(t, workers, count)

	var last string
	require.NoError(t, db.QueryRow("SELECT location FROM positions WHERE book_id = 3").Scan(&last))
	assert.Equal(t, fmt.Sprintf("loc-%d", writes-1), last)
}
