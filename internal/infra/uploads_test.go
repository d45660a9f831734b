package infra

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUploads_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u, err := NewLocalUploads(dir)
	require.NoError(t, err)

	name, err := u.Save(context.Background(), "../../etc/board.PNG", []byte("img"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "upload_"))
	assert.True(t, strings.HasSuffix(name, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	name, err = u.Save(context.Background(), "script.sh", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))
}
