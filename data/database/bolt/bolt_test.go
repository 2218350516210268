package bolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "nested", "altar.db")
	db, err := Open(Config{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Close())
}
