package pyenv

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"
)

// Backend identifies which installation strategy is active for the
// whole run. It is decided once, from the detected context, never
// per requirement.
type Backend int

const (
	// BackendPip installs with pip, or uv when it is on PATH.
	BackendPip Backend = iota

	// BackendConda installs into a conda prefix.
	BackendConda

	// BackendPacman installs MSYS2/MinGW packages with pacman.
	BackendPacman
)

func (b Backend) String() string {
	switch b {
	case BackendConda:
		return "conda"
	case BackendPacman:
		return "pacman"
	default:
		return "pip"
	}
}

// Context holds everything detected about the target interpreter and
// its surroundings. It is computed once by Detect and read-only from
// then on; backends receive it explicitly rather than consulting
// process globals.
type Context struct {
	Executable string
	Prefix     string

	// Platform is the raw sysconfig platform, eg "linux-x86_64",
	// "mingw_x86_64_ucrt", "win-amd64", "macosx-11.0-arm64".
	Platform string

	// PlatformTag is Platform collapsed to the constraint universe:
	// linux, macos, mingw or windows.
	PlatformTag string

	// PythonVersion is the dotted interpreter version, eg "3.12.1".
	PythonVersion string

	// PythonNodot is the major+minor tag with no separator, eg "312".
	PythonNodot string

	// FinalRelease is false for alpha/beta/rc interpreter builds.
	FinalRelease bool

	CondaMeta   bool
	CondaExe    string
	MingwPrefix string

	// UV is the path of the uv executable, empty when unavailable
	// or suppressed (running under wine).
	UV string

	// Host carries best-effort information about the machine itself,
	// for diagnostics only.
	Host *host.InfoStat
}

// Backend returns the single strategy this context selects.
func (c *Context) Backend() Backend {
	switch {
	case c.CondaMeta:
		return BackendConda
	case c.PlatformTag == "mingw":
		return BackendPacman
	default:
		return BackendPip
	}
}

// PipCommand returns the argv prefix used for pip-family invocations.
func (c *Context) PipCommand() []string {
	if c.UV != "" {
		return []string{c.UV, "pip"}
	}
	return []string{c.Executable, "-m", "pip"}
}

// probeScript asks the interpreter about itself. All decisions about
// the environment come from the interpreter we will install into, not
// from the interpreter-independent host.
const probeScript = `import json, sys, sysconfig
print(json.dumps({
    "executable": sys.executable,
    "prefix": sys.prefix,
    "platform": sysconfig.get_platform(),
    "version": sysconfig.get_config_var("py_version"),
    "nodot": sysconfig.get_config_var("py_version_nodot"),
    "releaselevel": sys.version_info.releaselevel,
}))`

type probeInfo struct {
	Executable   string `json:"executable"`
	Prefix       string `json:"prefix"`
	Platform     string `json:"platform"`
	Version      string `json:"version"`
	Nodot        string `json:"nodot"`
	ReleaseLevel string `json:"releaselevel"`
}

// Detect probes the given interpreter (or "python3"/"python" from
// PATH when empty) and assembles the immutable run context.
func Detect(ctx context.Context, python string) (*Context, error) {
	if python == "" {
		python = findPython()
	}
	if python == "" {
		return nil, errors.New("no python interpreter found on PATH")
	}

	var buf bytes.Buffer

	cmd := exec.CommandContext(ctx, python, "-c", probeScript)
	cmd.Stdout = &buf
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "probing interpreter %s", python)
	}

	pc, err := parseProbe(buf.Bytes())
	if err != nil {
		return nil, err
	}

	if st, err := os.Stat(filepath.Join(pc.Prefix, "conda-meta")); err == nil && st.IsDir() {
		pc.CondaMeta = true
	}

	pc.CondaExe = os.Getenv("CONDA_EXE")
	if pc.CondaExe == "" {
		pc.CondaExe = "conda"
	}

	pc.MingwPrefix = os.Getenv("MINGW_PACKAGE_PREFIX")

	if os.Getenv("WINEPREFIX") == "" {
		if uv, err := exec.LookPath("uv"); err == nil {
			pc.UV = uv
		}
	}

	if hi, err := host.Info(); err == nil {
		pc.Host = hi
	}

	return pc, nil
}

func parseProbe(data []byte) (*Context, error) {
	var pi probeInfo

	if err := json.Unmarshal(data, &pi); err != nil {
		return nil, errors.Wrap(err, "decoding interpreter probe")
	}

	return &Context{
		Executable:    pi.Executable,
		Prefix:        pi.Prefix,
		Platform:      pi.Platform,
		PlatformTag:   PlatformTag(pi.Platform),
		PythonVersion: pi.Version,
		PythonNodot:   pi.Nodot,
		FinalRelease:  pi.ReleaseLevel == "final",
	}, nil
}

// PlatformTag collapses a sysconfig platform string into one of the
// four tags requirement constraints are written against.
func PlatformTag(platform string) string {
	switch {
	case strings.HasPrefix(platform, "macos"):
		return "macos"
	case strings.HasPrefix(platform, "mingw"):
		return "mingw"
	case strings.HasPrefix(platform, "win"):
		return "windows"
	default:
		return "linux"
	}
}

func findPython() string {
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}
