package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/offtune/internal/adapter/engine/mock"
	"github.com/tejashwikalptaru/offtune/internal/config"
	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/testutil"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("OFFTUNE_DB_PATH", filepath.Join(t.TempDir(), "offtune.db"))
	t.Setenv("OFFTUNE_LOG_LEVEL", "ERROR")
	t.Setenv("OFFTUNE_HTTP_ADDR", "127.0.0.1:0")
	env, err := config.Load()
	require.NoError(t, err)

	return Config{
		Env:           *env,
		UseMockEngine: true,
		TestFyneApp:   test.NewApp(),
	}
}

func TestNewApplication(t *testing.T) {
	app, err := NewApplication(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, app)

	// Verify all services were created
	assert.NotNil(t, app.Downloads())
	assert.NotNil(t, app.Preferences())
	assert.NotNil(t, app.Queue())
	assert.NotNil(t, app.Events())
	assert.NotNil(t, app.NewIDs())
	assert.IsType(t, &mock.Engine{}, app.Engine())

	assert.NoError(t, app.Shutdown())
}

func TestApplicationLifecycle(t *testing.T) {
	app, err := NewApplication(context.Background(), testConfig(t))
	require.NoError(t, err)

	assert.NoError(t, app.Shutdown())

	// Shutdown again should not panic
	assert.NoError(t, app.Shutdown())
}

func TestApplication_AppliesConfiguredRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env.DownloadsRoot = t.TempDir()

	app, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Shutdown()

	root, err := app.Downloads().DownloadsRoot()
	require.NoError(t, err)
	assert.Equal(t, cfg.Env.DownloadsRoot, root)

	outcome, err := app.Downloads().Enqueue(context.Background(), domain.AudioContent{
		ID:        "a",
		SourceURL: "https://cdn.example/a.mp3",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)

	id, ok := app.NewIDs().Take()
	require.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestApplication_QueueSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)

	first, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)
	first.Queue().Replace([]string{"a", "b"}, "mix", "b")
	require.NoError(t, first.Shutdown())

	second, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)
	defer second.Shutdown()

	state := second.Queue().State()
	assert.Equal(t, []string{"a", "b"}, state.IDs)
	assert.Equal(t, "b", state.CurrentID)
}

func TestApplication_Handler(t *testing.T) {
	app, err := NewApplication(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer app.Shutdown()

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/queue", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	ignore := append(testutil.IgnoreFyneGoroutines(), testutil.IgnoreHTTPGoroutines()...)
	defer testutil.VerifyNoLeaks(t, append(ignore, testutil.IgnoreDatabaseGoroutines()...)...)

	app, err := NewApplication(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer app.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestVersionInfo(t *testing.T) {
	v := VersionInfo{Version: "dev", GitCommit: "abc123", BuildTime: "now"}
	assert.Equal(t, "offtune dev (commit: abc123, built: now)", v.FullString())

	v.GitTag = "v1.2.0"
	assert.Equal(t, "v1.2.0", v.String())
}
