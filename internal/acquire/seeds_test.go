// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSeedsFileText(t *testing.T) {
	path := writeTemp(t, "seeds.txt", "# seeds\nAttention Is All You Need\n\n  Spiking Nets  \nAttention Is All You Need\n")
	seeds, err := ReadSeedsFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Attention Is All You Need", "Spiking Nets"}, seeds)
}

func TestReadSeedsFileCSV(t *testing.T) {
	path := writeTemp(t, "papers.csv", "id,Title\n1,\"Deep Nets, Revisited\"\n2,Spiking Nets\n3,\n")

	seeds, err := ReadSeedsFile(path, "title")
	require.NoError(t, err)
	assert.Equal(t, []string{"Deep Nets, Revisited", "Spiking Nets"}, seeds)

	ids, err := ReadSeedsFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	_, err = ReadSeedsFile(path, "missing")
	assert.Error(t, err)
}
