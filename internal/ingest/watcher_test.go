package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}

func TestStartWatcherInitialScan(t *testing.T) {
	root := t.TempDir()
	existing := writeFile(t, root, "existing.pdf", "x")
	writeFile(t, root, "ignored.txt", "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true})
	require.NoError(t, err)

	select {
	case got := <-events:
		assert.Equal(t, existing, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial scan event")
	}
}

func TestStartWatcherEmitsCreatedFiles(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}})
	require.NoError(t, err)

	path := filepath.Join(root, "new.pdf")
	require.NoError(t, os.WriteFile(path, []byte("report"), 0o644))

	select {
	case got := <-events:
		assert.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no create event")
	}
}

func TestStartWatcherClosesOnCancel(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	events, errs, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}})
	require.NoError(t, err)

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				// errs closes with the event channel.
				select {
				case _, open := <-errs:
					assert.False(t, open)
				case <-deadline:
					t.Fatal("error channel not closed")
				}
				return
			}
		case <-deadline:
			t.Fatal("event channel not closed")
		}
	}
}
