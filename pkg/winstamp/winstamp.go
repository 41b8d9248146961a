package winstamp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// Info is the version resource written into a Windows executable.
// Only Version is required; it is padded to the four dotted parts the
// resource format demands.
type Info struct {
	Version          string `json:"version"`
	InternalName     string `json:"internal_name,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	Comments         string `json:"comments,omitempty"`
	Company          string `json:"company,omitempty"`
	Description      string `json:"description,omitempty"`
	Copyright        string `json:"copyright,omitempty"`
	Trademarks       string `json:"trademarks,omitempty"`
	Product          string `json:"product,omitempty"`
	DLL              bool   `json:"dll,omitempty"`
	Debug            bool   `json:"debug,omitempty"`
	Verbose          bool   `json:"verbose"`
}

// NormalizeVersion pads a version to exactly four dot-separated
// parts: "8.1" becomes "8.1.0.0".
func NormalizeVersion(version string) string {
	parts := strings.Split(version, ".")
	for len(parts) < 4 {
		parts = append(parts, "0")
	}

	return strings.Join(parts, ".")
}

// stampScript reads the info from argv and hands it to the pywin32
// stamping routine.
const stampScript = `import json, sys
try:
    from win32verstamp import stamp
except ImportError:
    sys.exit("install pywin32 extensions first")
class Info:
    pass
info = Info()
for key, value in json.loads(sys.argv[2]).items():
    setattr(info, key, value)
stamp(sys.argv[1], info)`

// Stamper writes version resources by delegating to the interpreter's
// win32verstamp module.
type Stamper struct {
	logger hclog.Logger

	// Python is the interpreter carrying the pywin32 extensions.
	Python string
}

func (s *Stamper) L() hclog.Logger {
	if s.logger == nil {
		s.logger = hclog.L()
	}

	return s.logger
}

func (s *Stamper) SetLogger(logger hclog.Logger) {
	s.logger = logger
}

// Stamp writes info into the executable at path.
func (s *Stamper) Stamp(ctx context.Context, path string, info Info) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "stamp target %s", path)
	}

	info.Version = NormalizeVersion(info.Version)

	payload, err := json.Marshal(info)
	if err != nil {
		return err
	}

	s.L().Debug("stamping", "path", path, "version", info.Version)

	cmd := exec.CommandContext(ctx, s.Python, "-c", stampScript, path, string(payload))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "stamping %s", path)
	}

	return nil
}
