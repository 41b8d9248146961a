package pyproject

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePyproject = `
[build-system]
requires = [
    "setuptools>=77.0.3",
    "cx_Logging>=3.1 ; sys_platform == 'win32'",
]

[project]
name = "sampletool"
version = "8.1.3"
dependencies = [
    "cx_Logging>=3.0 ; sys_platform == 'win32'",
    "lief>=0.13.2,<1",
    "packaging>=24",
    "tomli>=2.0 ; python_version < '3.11'",
]
`

func writeProject(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pyproject.toml")
	require.NoError(t, os.WriteFile(path, []byte(samplePyproject), 0644))

	return path
}

func TestLoad(t *testing.T) {
	p, err := Load(writeProject(t))
	require.NoError(t, err)

	assert.Equal(t, "sampletool", p.Name)
	assert.Equal(t, "8.1.3", p.Version)
	assert.Len(t, p.BuildRequires, 2)
	assert.Len(t, p.Dependencies, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestBasicRequirements(t *testing.T) {
	p, err := Load(writeProject(t))
	require.NoError(t, err)

	t.Run("markers gate on platform and python", func(t *testing.T) {
		reqs := p.BasicRequirements("3.12.1", "linux", nil)
		assert.Equal(t, []string{"lief>=0.13.2,<1", "packaging>=24"}, reqs)

		reqs = p.BasicRequirements("3.10.2", "windows", nil)
		assert.Equal(t, []string{
			// the build-system pin wins over the project pin
			"cx_Logging>=3.1",
			"lief>=0.13.2,<1",
			"packaging>=24",
			"tomli>=2.0",
		}, reqs)
	})

	t.Run("extras append directive tokens", func(t *testing.T) {
		extras := map[string]string{"lief": "--conda=py-lief --only-binary"}

		reqs := p.BasicRequirements("3.12.1", "linux", extras)
		assert.Contains(t, reqs, "lief>=0.13.2,<1 --conda=py-lief --only-binary")
	})
}

func TestSplitMarker(t *testing.T) {
	spec, marker := SplitMarker("foo>=1.0 ; python_version < '3.11'")
	assert.Equal(t, "foo>=1.0", spec)
	assert.Equal(t, "python_version < '3.11'", marker)

	spec, marker = SplitMarker("bar")
	assert.Equal(t, "bar", spec)
	assert.Equal(t, "", marker)
}

func TestEvalMarker(t *testing.T) {
	cases := []struct {
		marker   string
		python   string
		platform string
		want     bool
	}{
		{"", "3.12.1", "linux", true},
		{`python_version >= "3.10"`, "3.12.1", "linux", true},
		{`python_version < "3.11"`, "3.12.1", "linux", false},
		{`python_full_version >= "3.12.1"`, "3.12.1", "linux", true},
		{`sys_platform == "win32"`, "3.12.1", "windows", true},
		{`sys_platform == "win32"`, "3.12.1", "mingw", true},
		{`sys_platform == "win32"`, "3.12.1", "linux", false},
		{`sys_platform != "darwin"`, "3.12.1", "macos", false},
		{`platform_system == "Linux"`, "3.12.1", "linux", true},
		{`sys_platform == "win32" and python_version >= "3.10"`, "3.12.1", "windows", true},
		{`sys_platform == "win32" and python_version >= "3.13"`, "3.12.1", "windows", false},
		{`sys_platform == "win32" or sys_platform == "darwin"`, "3.12.1", "macos", true},
		{`sys_platform == "win32" or sys_platform == "darwin"`, "3.12.1", "linux", false},
		// unevaluable markers keep the dependency
		{`implementation_name == "pypy"`, "3.12.1", "linux", true},
		{`os_name ~ garbage`, "3.12.1", "linux", true},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, EvalMarker(c.marker, c.python, c.platform), c.marker)
	}
}

func TestFindRoot(t *testing.T) {
	t.Run("walks up to pyproject.toml", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "pyproject.toml"), []byte(""), 0644))

		nested := filepath.Join(root, "samples", "tkinter")
		require.NoError(t, os.MkdirAll(nested, 0755))

		found, err := FindRoot(nested)
		require.NoError(t, err)
		assert.Equal(t, root, found)
	})

	t.Run("errors when absent", func(t *testing.T) {
		_, err := FindRoot(t.TempDir())
		assert.Error(t, err)
	})
}
