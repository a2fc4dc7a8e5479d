package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLogo_Placeholder(t *testing.T) {
	logo := LoadLogo("")

	assert.Equal(t, LogoPlaceholder, logo.State)
	assert.Equal(t, LogoLines, logo.Lines)
	assert.NoError(t, logo.Err)
}

func TestLoadLogo_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.txt")
	long := strings.Repeat("#", 120)
	require.NoError(t, os.WriteFile(path, []byte("  /\\  \n /  \\\n"+long+"\n\n\n"), 0o644))

	logo := LoadLogo(path)

	require.Equal(t, LogoLoaded, logo.State)
	require.Len(t, logo.Lines, 3, "trailing blank lines are dropped")
	assert.Equal(t, "  /\\", logo.Lines[0])
	assert.Equal(t, maxLogoWidth, len([]rune(logo.Lines[2])))
	assert.Equal(t, 3, logo.Height())
}

func TestLoadLogo_CapsHeight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tall.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("row\n", 40)), 0o644))

	logo := LoadLogo(path)
	assert.Equal(t, maxLogoLines, logo.Height())
}

func TestLoadLogo_ErrorFallback(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o644))

	for name, path := range map[string]string{
		"missing":   filepath.Join(dir, "missing.txt"),
		"directory": dir,
		"empty":     empty,
	} {
		t.Run(name, func(t *testing.T) {
			logo := LoadLogo(path)
			assert.Equal(t, LogoFailed, logo.State)
			assert.Equal(t, ErrorLogoLines, logo.Lines)
			assert.Error(t, logo.Err)
		})
	}
}

func TestLogoRender(t *testing.T) {
	styles := NewStyles(testColors())
	out := LoadLogo("").Render(styles)
	for _, line := range LogoLines {
		assert.Contains(t, out, line)
	}
}
