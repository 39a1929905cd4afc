package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/offtune/internal/adapter/engine/mock"
	"github.com/tejashwikalptaru/offtune/internal/app"
	"github.com/tejashwikalptaru/offtune/internal/config"
	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/service"
)

func startServer(t *testing.T) string {
	t.Helper()
	addr, _ := startApp(t)
	return addr
}

func startApp(t *testing.T) (string, *app.Application) {
	t.Helper()
	t.Setenv("OFFTUNE_DB_PATH", filepath.Join(t.TempDir(), "offtune.db"))
	t.Setenv("OFFTUNE_LOG_LEVEL", "ERROR")
	env, err := config.Load()
	require.NoError(t, err)

	application, err := app.NewApplication(context.Background(), app.Config{
		Env:           *env,
		UseMockEngine: true,
		TestFyneApp:   test.NewApp(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown() })

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://"), application
}

func run(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--addr", addr))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_EnqueueAndList(t *testing.T) {
	addr := startServer(t)

	out, err := run(t, addr, "enqueue", "https://cdn.example/a.mp3")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	_, err = run(t, addr, "root", "set", t.TempDir())
	require.NoError(t, err)

	out, err = run(t, addr, "list")
	require.NoError(t, err)
	assert.Contains(t, out, service.ContentIDForURL("https://cdn.example/a.mp3"))
	assert.Contains(t, out, "queued")

	out, err = run(t, addr, "enqueue", "https://cdn.example/a.mp3")
	require.NoError(t, err)
	assert.Contains(t, out, "already_queued")

	_, err = run(t, addr, "enqueue", "https://cdn.example/n.mp3", "--id", "n", "--title", "Night", "--artist", "Owls")
	require.NoError(t, err)
	out, err = run(t, addr, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Owls - Night")

	out, err = run(t, addr, "events", "new")
	require.NoError(t, err)
	assert.Equal(t, "n\n", out)
	out, err = run(t, addr, "events", "new")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing new.")
}

func TestCLI_Actions(t *testing.T) {
	addr := startServer(t)
	_, err := run(t, addr, "root", "set", t.TempDir())
	require.NoError(t, err)
	_, err = run(t, addr, "enqueue", "https://cdn.example/b.mp3", "--id", "b")
	require.NoError(t, err)

	for _, action := range []string{"pause", "resume", "cancel", "retry"} {
		_, err := run(t, addr, action, "b")
		assert.NoError(t, err, action)
	}

	_, err = run(t, addr, "show", "b")
	assert.Error(t, err, "only completed downloads are shown by default")

	out, err := run(t, addr, "show", "b", "--status", "queued")
	require.NoError(t, err)
	assert.Contains(t, out, "queued")

	_, err = run(t, addr, "rm", "b")
	require.NoError(t, err)
	out, err = run(t, addr, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No downloads.")
}

func TestCLI_SettingsAndQueue(t *testing.T) {
	addr := startServer(t)

	_, err := run(t, addr, "grouping", "artist")
	require.NoError(t, err)

	_, err = run(t, addr, "grouping", "decade")
	assert.Error(t, err)

	out, err := run(t, addr, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "folder_grouping = artist")

	out, err = run(t, addr, "queue")
	require.NoError(t, err)
	assert.Contains(t, out, "Queue is empty.")

	_, err = run(t, addr, "queue", "play-downloads")
	assert.Error(t, err)

	_, err = run(t, addr, "enqueue", "https://cdn.example/c.mp3", "--id", "c")
	require.NoError(t, err)
	out, err = run(t, addr, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "downloader.choose_location c")
}

func TestCLI_QueueNavigationAndPlaylists(t *testing.T) {
	addr, application := startApp(t)
	engine, ok := application.Engine().(*mock.Engine)
	require.True(t, ok)

	_, err := run(t, addr, "root", "set", t.TempDir())
	require.NoError(t, err)
	for i, id := range []string{"a", "b", "c"} {
		_, err = run(t, addr, "enqueue", "https://cdn.example/"+id+".mp3", "--id", id)
		require.NoError(t, err)
		engine.Complete(domain.EngineHandle(i+1), id+".mp3", 1)
	}

	out, err := run(t, addr, "queue", "play-downloads", "a")
	require.NoError(t, err)
	assert.Contains(t, out, ">  1. a")

	out, err = run(t, addr, "queue", "next")
	require.NoError(t, err)
	assert.Equal(t, "b\n", out)

	out, err = run(t, addr, "queue", "swap", "1", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "   1. c")
	assert.Contains(t, out, ">  3. a")

	_, err = run(t, addr, "queue", "swap", "0", "1")
	assert.Error(t, err)

	out, err = run(t, addr, "queue", "current", "b")
	require.NoError(t, err)
	assert.Contains(t, out, ">  2. b")

	out, err = run(t, addr, "queue", "previous", "--elapsed", "1s")
	require.NoError(t, err)
	assert.Equal(t, "c\n", out)
	out, err = run(t, addr, "queue", "previous", "--elapsed", "10s")
	require.NoError(t, err)
	assert.Equal(t, "b\n", out)

	_, err = run(t, addr, "queue", "now-playing", "a")
	require.NoError(t, err)
	out, err = run(t, addr, "queue")
	require.NoError(t, err)
	assert.Contains(t, out, ">  3. a")

	out, err = run(t, addr, "playlists", "save", "mix")
	require.NoError(t, err)
	id := strings.Fields(out)[0]

	out, err = run(t, addr, "queue", "rm", "b")
	require.NoError(t, err)
	assert.NotContains(t, out, "b\n")

	out, err = run(t, addr, "queue", "play-playlist", id)
	require.NoError(t, err)
	assert.Contains(t, out, "mix")
	assert.Contains(t, out, "   2. b")

	out, err = run(t, addr, "playlists")
	require.NoError(t, err)
	assert.Contains(t, out, "mix (3)")

	_, err = run(t, addr, "playlists", "delete", id)
	require.NoError(t, err)
	out, err = run(t, addr, "playlists")
	require.NoError(t, err)
	assert.Contains(t, out, "No playlists.")
}

func TestCLI_SettingsReset(t *testing.T) {
	addr := startServer(t)
	_, err := run(t, addr, "root", "set", t.TempDir())
	require.NoError(t, err)
	_, err = run(t, addr, "grouping", "artist_album")
	require.NoError(t, err)

	_, err = run(t, addr, "settings", "reset")
	require.NoError(t, err)

	out, err := run(t, addr, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "folder_grouping = flat")
	assert.Contains(t, out, "downloads_root = \n")
}

func TestCLI_ServerDown(t *testing.T) {
	_, err := run(t, "127.0.0.1:1", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offtune serve")
}
