package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithPragmas(t *testing.T) {
	assert.Equal(t,
		"/tmp/a.db?_pragma=busy_timeout(30000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		withPragmas("/tmp/a.db", false))
	assert.Equal(t,
		"file:x?mode=memory&_pragma=busy_timeout(30000)&_pragma=foreign_keys(1)",
		withPragmas("file:x?mode=memory", true))
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM download_requests`))
	assert.Equal(t, 0, n)
}
