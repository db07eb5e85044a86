package main

import (
	"bytes"
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mylibrary/mylibrary/pkg/apiclient"
	"github.com/mylibrary/mylibrary/pkg/library"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/offline"
	"github.com/mylibrary/mylibrary/pkg/progresssync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestFlush_OfflineKeepsQueueAndSucceeds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := offline.Open(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// a server that is gone by the time flush runs
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := apiclient.New(apiclient.Options{BaseURL: srv.URL, Token: "token", Timeout: time.Second})

	coordinator := progresssync.NewCoordinator(store, client)
	page, total := 3, 10
	require.NoError(t, coordinator.Record(ctx, models.ReadingProgress{
		BookID:          4,
		ProgressPercent: 30,
		CurrentPage:     &page,
		TotalPages:      &total,
	}))

	a := &app{
		store:       store,
		client:      client,
		coordinator: coordinator,
		library:     library.New(client, store, coordinator, nil),
	}

	var out bytes.Buffer
	c := cli.NewContext(&cli.App{Writer: &out}, flag.NewFlagSet("flush", flag.ContinueOnError), nil)
	c.Context = ctx

	require.NoError(t, a.flush(c))
	assert.Contains(t, out.String(), "Sent 0, superseded 0, failed 1")
	assert.Contains(t, out.String(), "1 progress update(s) stay queued for the next flush")

	pending, err := store.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 4, pending[0].BookID)
}
