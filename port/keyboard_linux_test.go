//go:build linux

package port

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/term/termios"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyboardRejectsNonTerminal(t *testing.T) {
	_, err := NewKeyboard(nil)
	assert.Error(t, err)

	f, err := os.Create(filepath.Join(t.TempDir(), "input"))
	require.NoError(t, err)
	defer f.Close()

	_, err = NewKeyboard(f)
	assert.ErrorContains(t, err, "not a terminal")
}

func TestKeyboardSavesTermiosAttributes(t *testing.T) {
	var k Keyboard
	cbreak := k.canAttr
	termios.Cfmakecbreak(&cbreak)
	assert.NotEqual(t, k.canAttr, cbreak)
}
