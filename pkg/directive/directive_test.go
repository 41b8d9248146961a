package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("bare requirement", func(t *testing.T) {
		d, err := Parse("foo>=1.0")
		require.NoError(t, err)

		assert.Equal(t, "foo", d.Name)
		assert.Equal(t, "foo>=1.0", d.Spec)
		assert.Nil(t, d.CondaAlias)
		assert.Nil(t, d.MingwAlias)
		assert.False(t, d.Flagged())
	})

	t.Run("flag order does not matter", func(t *testing.T) {
		a, err := Parse("foo --no-deps --upgrade")
		require.NoError(t, err)

		b, err := Parse("foo --upgrade --no-deps")
		require.NoError(t, err)

		b.Raw = a.Raw
		assert.Equal(t, a, b)
	})

	t.Run("last bare token wins", func(t *testing.T) {
		d, err := Parse("foo>=1.0 bar==2.0")
		require.NoError(t, err)

		assert.Equal(t, "bar", d.Name)
		assert.Equal(t, "bar==2.0", d.Spec)
	})

	t.Run("aliases distinguish empty from unset", func(t *testing.T) {
		d, err := Parse("lief --conda= --mingw=python-lief")
		require.NoError(t, err)

		require.NotNil(t, d.CondaAlias)
		assert.Equal(t, "", *d.CondaAlias)
		require.NotNil(t, d.MingwAlias)
		assert.Equal(t, "python-lief", *d.MingwAlias)
	})

	t.Run("conda alias keeps version", func(t *testing.T) {
		d, err := Parse("lief --conda=py-lief>=0.14")
		require.NoError(t, err)

		require.NotNil(t, d.CondaAlias)
		assert.Equal(t, "py-lief>=0.14", *d.CondaAlias)
	})

	t.Run("all flags", func(t *testing.T) {
		d, err := Parse("pkg --no-deps --only-binary --pre --prefer-binary --upgrade --platform=linux,!mingw --python-version>=3.10")
		require.NoError(t, err)

		assert.True(t, d.NoDeps)
		assert.True(t, d.OnlyBinary)
		assert.True(t, d.PreRelease)
		assert.True(t, d.PreferBinary)
		assert.True(t, d.Upgrade)
		assert.Equal(t, "linux,!mingw", d.Platforms)
		assert.Equal(t, ">=3.10", d.PythonVersion)
		assert.True(t, d.Flagged())
	})

	t.Run("unknown flags are rejected", func(t *testing.T) {
		_, err := Parse("foo --no-dpes")
		assert.Error(t, err)
	})

	t.Run("empty line", func(t *testing.T) {
		d, err := Parse("")
		require.NoError(t, err)
		assert.Equal(t, "", d.Spec)
	})
}

func TestSupportedPlatform(t *testing.T) {
	for _, p := range []string{"linux", "macos", "mingw", "windows"} {
		assert.True(t, SupportedPlatform("", p), p)
		assert.False(t, SupportedPlatform("linux,!linux", p), p)
	}

	assert.False(t, SupportedPlatform("!windows", "windows"))
	assert.True(t, SupportedPlatform("!windows", "linux"))
	assert.True(t, SupportedPlatform("!windows", "mingw"))

	assert.True(t, SupportedPlatform("windows,mingw", "mingw"))
	assert.False(t, SupportedPlatform("windows,mingw", "linux"))

	assert.True(t, SupportedPlatform("darwin,linux", "linux"))
	assert.False(t, SupportedPlatform("darwin,linux", "macos"))
}

func TestSupportedPython(t *testing.T) {
	assert.True(t, SupportedPython("", "3.12.1"))
	assert.True(t, SupportedPython(">=3.10", "3.12.1"))
	assert.False(t, SupportedPython(">=3.13", "3.12.1"))
	assert.True(t, SupportedPython("<3.14", "3.12.1"))

	// quoted specifiers come straight out of pyproject markers
	assert.True(t, SupportedPython(`>="3.10"`, "3.12.1"))

	// unevaluable input degrades to supported
	assert.True(t, SupportedPython("~~nonsense", "3.12.1"))
	assert.True(t, SupportedPython(">=3.10", "not-a-version"))
}

func TestApplies(t *testing.T) {
	d, err := Parse("baz --platform=!windows")
	require.NoError(t, err)

	assert.False(t, d.Applies("windows", "3.12.1"))
	assert.True(t, d.Applies("linux", "3.12.1"))

	d, err = Parse("qux --python-version>=3.13")
	require.NoError(t, err)

	assert.False(t, d.Applies("linux", "3.12.1"))
	assert.True(t, d.Applies("linux", "3.13.0"))
}
