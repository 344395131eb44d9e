package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedIDsFromDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"1abc_a.pdb",
		"1ABC_A.pdb.bak",
		"af-p12345-f1-model_v4_a.pdb",
		"x.pdb",
		"noextension",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("ATOM"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.pdb"), 0o755))

	ids, err := CachedIDsFromDir(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1ABC_A", "AF-P12345-F1-model_v4_A"}, ids)
}
