package cmd

import (
	"AltarProject/tools/errs"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "altar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

// boltConfig 每个测试独立的 bbolt 文件，避免写进工作目录
func boltConfig(t *testing.T, extra string) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "c.db")
	return writeConfig(t, "bolt:\n  path: "+db+"\n"+extra)
}

func TestCounterNextBolt(t *testing.T) {
	path := boltConfig(t, "counter:\n  backend: bolt\n")

	out, err := run(t, "-c", path, "counter", "next", "server_group_seq", "--prefix", "SG")
	require.NoError(t, err)
	assert.Equal(t, "SG00001", out)

	out, err = run(t, "-c", path, "counter", "next", "server_group_seq", "--prefix", "SG", "--pad", "3")
	require.NoError(t, err)
	assert.Equal(t, "SG002", out)

	out, err = run(t, "-c", path, "counter", "current", "server_group_seq")
	require.NoError(t, err)
	assert.Equal(t, "2", out)
}

func TestCounterNextDefaultBackendPersists(t *testing.T) {
	path := boltConfig(t, "")

	first, err := run(t, "-c", path, "counter", "next", "server_group_seq", "--prefix", "SG")
	require.NoError(t, err)
	second, err := run(t, "-c", path, "counter", "next", "server_group_seq", "--prefix", "SG")
	require.NoError(t, err)
	assert.Equal(t, "SG00001", first)
	assert.Equal(t, "SG00002", second)
}

func TestCounterRejectsMemoryBackend(t *testing.T) {
	path := boltConfig(t, "counter:\n  backend: memory\n")

	_, err := run(t, "-c", path, "counter", "next", "server_group_seq")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = run(t, "-c", path, "counter", "current", "server_group_seq")
	require.Error(t, err)
}

func TestCounterNextInvalid(t *testing.T) {
	path := boltConfig(t, "")
	_, err := run(t, "-c", path, "counter", "next", "x", "--pad", "0")
	require.Error(t, err)

	_, err = run(t, "-c", path, "counter", "next")
	require.Error(t, err)
}

func TestNotifySendLocal(t *testing.T) {
	out, err := run(t, "-c", boltConfig(t, ""), "notify", "send", "--title", "Sunday Mass", "--channel", "push")
	require.NoError(t, err)
	assert.Contains(t, out, `"procedure":"admin_enqueueNotification"`)
	assert.Contains(t, out, `"queued":true`)
}

func TestNotifySendLegacyOnlyLocal(t *testing.T) {
	path := boltConfig(t, "notify:\n  serve: [admin_manualSendNotification]\n")
	out, err := run(t, "-c", path, "notify", "send", "--body", "Practice moved")
	require.NoError(t, err)
	assert.Contains(t, out, `"procedure":"admin_manualSendNotification"`)
}

func TestNotifySendInvalid(t *testing.T) {
	_, err := run(t, "-c", boltConfig(t, ""), "notify", "send")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title or body is required")
}

func TestDoctor(t *testing.T) {
	out, err := run(t, "-c", boltConfig(t, ""), "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "ok   counter store (bolt)")
	assert.Contains(t, out, "ok   notify queue (memory)")
}

func TestDoctorMongoUnreachable(t *testing.T) {
	path := boltConfig(t, `counter:
  backend: mongo
mongo:
  uri: mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200
  database: altar
`)
	out, err := run(t, "-c", path, "doctor", "--timeout", "2s")
	require.Error(t, err)
	assert.Contains(t, out, "FAIL mongo")
	assert.Contains(t, err.Error(), "mongo")
}
