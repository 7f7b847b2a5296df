package app

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-chdk/internal/config"
	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/session"
)

// fakeChdkptp logs every command and answers lvdumpimg with a 4x2 PPM,
// written under a temporary name and renamed so it appears atomically.
const fakeChdkptp = `while read line; do
  echo "$line" >> commands.log
  case "$line" in
    lvdumpimg*)
      printf 'P6\n4 2\n255\n' > frame.tmp
      head -c 24 /dev/zero >> frame.tmp
      mv frame.tmp frame.ppm
      ;;
  esac
done`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	cfg := config.HeadlessConfig()
	cfg.Chdkptp.Path = "sh"
	cfg.Chdkptp.Args = []string{"-c", fakeChdkptp}
	cfg.Chdkptp.StartupDelay = 0
	cfg.Capture.Dir = t.TempDir()
	cfg.Capture.Width = 4
	cfg.Capture.Height = 2
	cfg.Capture.TriggerDelay = 100 * time.Millisecond
	cfg.Capture.RecycleEvery = 3
	cfg.Display.Web = ""
	cfg.Display.Interval = 5 * time.Millisecond
	return cfg
}

func TestApp_EndToEnd(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx))
	require.NoError(t, a.Shutdown())

	st := a.Status()
	assert.Greater(t, st.FramesAcquired, 0)
	assert.GreaterOrEqual(t, st.Recycles, 1)

	data, err := os.ReadFile(filepath.Join(cfg.Capture.Dir, "commands.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, cfg.StartupCommands(), lines[:5])
	assert.Equal(t, `lvdumpimg -vp="frame.ppm"`, lines[5])
}

func TestApp_LaunchFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chdkptp.Path = filepath.Join(t.TempDir(), "missing", "chdkptp")

	a, err := New(cfg, log.Discard())
	require.NoError(t, err)

	err = a.Init(context.Background())
	var launchErr *session.LaunchError
	require.True(t, errors.As(err, &launchErr), "got %v", err)
	assert.NoError(t, a.Shutdown())
}

func TestApp_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.Width = 0

	_, err := New(cfg, log.Discard())
	var verr *config.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestApp_RunBeforeInit(t *testing.T) {
	a, err := New(config.HeadlessConfig(), log.Discard())
	require.NoError(t, err)
	assert.Error(t, a.Run(context.Background()))
}
