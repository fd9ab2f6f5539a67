package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func TestLoadDir_CompilesManifest(t *testing.T) {
	dir := writeManifest(t, map[string]string{
		"authors.cue": `table: authors: columns: "_id": "increments"`,
		"books.cue": `
table: books: {
	columns: {
		"_id": "increments"
		title: {type: "string"}
	}
	foreign: author: "authors"
}
`,
	})

	result, errs := LoadDir(dir, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 2, result.FileCount)
	require.Len(t, result.Tables, 2)

	manifest := result.Manifest()
	ids := make([]string, len(manifest))
	for i, m := range manifest {
		ids[i] = m.Identifier()
	}
	assert.ElementsMatch(t, []string{"create_authors", "create_books"}, ids)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "missing"), LoadModeFailFast)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDir_NoFiles(t *testing.T) {
	_, errs := LoadDir(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoadDir_NoTables(t *testing.T) {
	dir := writeManifest(t, map[string]string{
		"empty.cue": `other: 1`,
	})
	_, errs := LoadDir(dir, LoadModeFailFast)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeGeneric, loadErr.Code)
}

func TestLoadDir_CollectAll(t *testing.T) {
	dir := writeManifest(t, map[string]string{
		"bad.cue": `
table: {
	a: columns: score: "float"
	b: columns: state: {type: "enum"}
	c: columns: "_id": "increments"
}
`,
	})

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	for _, err := range errs {
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, ErrCodeCompile, loadErr.Code)
	}
	require.Len(t, result.Tables, 1)
	assert.Equal(t, "c", result.Tables[0].Name)
}

func TestLoadDir_FailFastStopsEarly(t *testing.T) {
	dir := writeManifest(t, map[string]string{
		"bad.cue": `
table: {
	a: columns: score: "float"
	b: columns: state: {type: "enum"}
}
`,
	})

	_, errs := LoadDir(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}
