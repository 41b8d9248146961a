package pyenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformTag(t *testing.T) {
	cases := map[string]string{
		"linux-x86_64":      "linux",
		"manylinux1_x86_64": "linux",
		"macosx-11.0-arm64": "macos",
		"mingw_x86_64":      "mingw",
		"mingw_x86_64_ucrt": "mingw",
		"win-amd64":         "windows",
		"win32":             "windows",
	}

	for platform, tag := range cases {
		assert.Equal(t, tag, PlatformTag(platform), platform)
	}
}

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"executable": "/opt/py/bin/python3",
		"prefix": "/opt/py",
		"platform": "linux-x86_64",
		"version": "3.13.0",
		"nodot": "313",
		"releaselevel": "candidate"
	}`)

	pc, err := parseProbe(data)
	require.NoError(t, err)

	assert.Equal(t, "/opt/py/bin/python3", pc.Executable)
	assert.Equal(t, "linux", pc.PlatformTag)
	assert.Equal(t, "3.13.0", pc.PythonVersion)
	assert.Equal(t, "313", pc.PythonNodot)
	assert.False(t, pc.FinalRelease)

	_, err = parseProbe([]byte("not json"))
	assert.Error(t, err)
}

func TestBackendSelection(t *testing.T) {
	t.Run("conda wins over platform", func(t *testing.T) {
		pc := &Context{CondaMeta: true, PlatformTag: "mingw"}
		assert.Equal(t, BackendConda, pc.Backend())
	})

	t.Run("mingw selects pacman", func(t *testing.T) {
		pc := &Context{PlatformTag: "mingw"}
		assert.Equal(t, BackendPacman, pc.Backend())
	})

	t.Run("default is pip", func(t *testing.T) {
		pc := &Context{PlatformTag: "windows"}
		assert.Equal(t, BackendPip, pc.Backend())
	})
}

func TestPipCommand(t *testing.T) {
	pc := &Context{Executable: "/usr/bin/python3"}
	assert.Equal(t, []string{"/usr/bin/python3", "-m", "pip"}, pc.PipCommand())

	pc.UV = "/usr/local/bin/uv"
	assert.Equal(t, []string{"/usr/local/bin/uv", "pip"}, pc.PipCommand())
}
