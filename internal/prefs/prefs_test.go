package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLoadMissingFileGivesDefault(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "prefs.yaml")
	require.NoError(t, Save(path, &Prefs{Theme: ThemeDark, Lang: LangID}))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, p.Theme)
	assert.Equal(t, language.Indonesian, p.Tag())
}

func TestLoadFillsBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("theme: dark\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, &Prefs{Theme: ThemeDark, Lang: LangEN}, p)
}

func TestInvalidPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("theme: blue\nlang: fr\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theme")
	assert.Contains(t, err.Error(), "lang")

	assert.Error(t, Save(path, &Prefs{Theme: "blue", Lang: LangEN}))
}
