package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/tailbut/internal/config"
	"github.com/five82/tailbut/internal/gate"
	"github.com/five82/tailbut/internal/state"
)

// syncBuffer guards a bytes.Buffer written by the follow loop and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func noEnv(string) (string, bool) { return "", false }

func TestRun_StdinToEOF(t *testing.T) {
	cfg := config.Default()
	cfg.Regex = "error"
	cfg.IgnoreCase = true

	var out bytes.Buffer
	stats := &state.Store{}
	err := Run(context.Background(), Options{
		Config: cfg,
		Stdin:     strings.NewReader("first\nsecond\nERROR third\nfourth"),
		Stdout:    &out,
		LookupEnv: noEnv,
		Stats:     stats,
	})
	require.NoError(t, err)

	assert.Equal(t, "first\nERROR third\n", out.String())
	snap := stats.Snapshot()
	assert.EqualValues(t, 4, snap.LinesObserved)
	assert.EqualValues(t, 1, snap.LinesUrgent)
}

func TestRun_ColorOnTerminal(t *testing.T) {
	cfg := config.Default()
	cfg.Regex = "ERROR"
	cfg.Color = "green"

	var out bytes.Buffer
	err := Run(context.Background(), Options{
		Config:    cfg,
		Stdin:     strings.NewReader("ERROR x\n"),
		Stdout:    &out,
		Terminal:  true,
		LookupEnv: noEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, "\x1b[32mERROR x\x1b[0m\n", out.String())

	out.Reset()
	cfg.ColorMode = "never"
	err = Run(context.Background(), Options{
		Config:    cfg,
		Stdin:     strings.NewReader("ERROR x\n"),
		Stdout:    &out,
		Terminal:  true,
		LookupEnv: noEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, "ERROR x\n", out.String())
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Regex = "(broken"

	err := Run(context.Background(), Options{Config: cfg, Stdin: strings.NewReader(""), Stdout: &bytes.Buffer{}})
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestRun_RefusesSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "real.log")
	require.NoError(t, os.WriteFile(target, []byte("x\n"), 0o600))
	link := filepath.Join(dir, "link.log")
	require.NoError(t, os.Symlink(target, link))

	cfg := config.Default()
	cfg.Path = link
	cfg.NoFollowSymlinks = true

	err := Run(context.Background(), Options{Config: cfg, Stdout: &bytes.Buffer{}})
	require.ErrorIs(t, err, gate.ErrRefused)
}

func TestRun_RefusesOutsideAllowedRoot(t *testing.T) {
	root := t.TempDir()
	other := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(other, []byte("x\n"), 0o600))

	cfg := config.Default()
	cfg.Path = other
	cfg.AllowedRoot = root

	err := Run(context.Background(), Options{Config: cfg, Stdout: &bytes.Buffer{}})
	require.ErrorIs(t, err, gate.ErrRefused)
}

func TestRun_FollowsFileUntilCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))

	cfg := config.Default()
	cfg.Path = path
	cfg.PollMillis = 10
	cfg.Regex = "."
	cfg.Watch = false

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- Run(ctx, Options{Config: cfg, Stdout: out}) }()

	// Give the source time to open at end of file before appending.
	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("new\ntail")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		return out.String() == "new\n"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
	assert.Equal(t, "new\ntail"+TruncatedMarker+"\n", out.String())
}
