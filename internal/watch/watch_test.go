package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("a: {}\n"), 0o644))

	calls := make(chan string, 10)
	w, err := New(map[string]string{"demo": file}, func(_ context.Context, project string) {
		calls <- project
	}, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("a: {}\nb: {}\n"), 0o644))
	}

	select {
	case p := <-calls:
		require.Equal(t, "demo", p)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}
	select {
	case p := <-calls:
		t.Fatalf("unexpected second call for %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
