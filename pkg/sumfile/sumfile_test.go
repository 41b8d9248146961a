package sumfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumfile(t *testing.T) {
	payload := []byte("fake pacman payload")

	t.Run("add lookup verify", func(t *testing.T) {
		var sf Sumfile

		printable, err := sf.Add("pkg-1.0-1-any.pkg.tar.zst", bytes.NewReader(payload))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(printable, "b2:"))

		algo, hash, ok := sf.Lookup("pkg-1.0-1-any.pkg.tar.zst")
		require.True(t, ok)
		assert.Equal(t, "b2", algo)
		assert.Len(t, hash, 32)

		assert.NoError(t, sf.Verify("pkg-1.0-1-any.pkg.tar.zst", bytes.NewReader(payload)))
		assert.Error(t, sf.Verify("pkg-1.0-1-any.pkg.tar.zst", bytes.NewReader([]byte("tampered"))))
	})

	t.Run("unknown name verifies", func(t *testing.T) {
		var sf Sumfile
		assert.NoError(t, sf.Verify("missing", bytes.NewReader(payload)))
	})

	t.Run("save and load round trip", func(t *testing.T) {
		var sf Sumfile

		_, err := sf.Add("b.tar.zst", bytes.NewReader(payload))
		require.NoError(t, err)
		_, err = sf.Add("a.tar.zst", bytes.NewReader(payload))
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, sf.Save(&buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasSuffix(lines[0], " a.tar.zst"))

		var loaded Sumfile
		require.NoError(t, loaded.Load(&buf))

		assert.NoError(t, loaded.Verify("a.tar.zst", bytes.NewReader(payload)))
	})

	t.Run("load skips comments and blanks", func(t *testing.T) {
		var sf Sumfile

		input := "# comment\n\nnot a sum line\n"
		require.NoError(t, sf.Load(strings.NewReader(input)))

		_, _, ok := sf.Lookup("not a sum line")
		assert.False(t, ok)
	})
}
