package nvhook

import (
	"context"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// The nvidia wheels ship CUDA libraries under nvidia/*/lib that the
// dynamic loader cannot find once the application is frozen. The
// patch preloads them with ctypes at import time; Apply appends it to
// the installed package's __init__ exactly once.
const patch = `
def _provis_patch():
    import ctypes
    import sys
    from pathlib import Path

    source_lib = Path(sys.frozen_dir, "lib", "nvidia")
    for source in source_lib.glob("*/lib/*"):
        ctypes.CDLL(source)
_provis_patch()
`

const applyScript = `import sys
from pathlib import Path

patch = sys.argv[1]
try:
    import nvidia
except ImportError:
    sys.exit("nvidia package is not installed")
init = Path(nvidia.__file__)
source = init.read_text(encoding="utf_8")
if "_provis_patch" not in source:
    init.write_text(source + patch, encoding="utf_8")`

// Hook applies the one-shot nvidia loader patch through the target
// interpreter.
type Hook struct {
	logger hclog.Logger

	Python string
}

func (h *Hook) L() hclog.Logger {
	if h.logger == nil {
		h.logger = hclog.L()
	}

	return h.logger
}

func (h *Hook) SetLogger(logger hclog.Logger) {
	h.logger = logger
}

// Apply patches the installed nvidia package. Applying twice is a
// no-op; the patch marker is checked before writing.
func (h *Hook) Apply(ctx context.Context) error {
	h.L().Debug("patching nvidia loader", "python", h.Python)

	cmd := exec.CommandContext(ctx, h.Python, "-c", applyScript, patch)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "applying nvidia hook")
	}

	return nil
}
