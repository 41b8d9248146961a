package fetch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-getter"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"provis.dev/provis/pkg/sumfile"
)

// Fetcher downloads single payload files, optionally verifying them
// against a sumfile keyed by the payload's base name.
type Fetcher struct {
	logger hclog.Logger

	// Sums, when set, is consulted after every download.
	Sums *sumfile.Sumfile

	// Dir is where payloads land; a temp dir is created when empty.
	Dir string
}

func (f *Fetcher) L() hclog.Logger {
	if f.logger == nil {
		f.logger = hclog.L()
	}

	return f.logger
}

func (f *Fetcher) SetLogger(logger hclog.Logger) {
	f.logger = logger
}

// File fetches url and returns the local path of the payload.
func (f *Fetcher) File(ctx context.Context, url string) (string, error) {
	dir := f.Dir

	if dir == "" {
		var err error

		dir, err = os.MkdirTemp("", "provis-fetch")
		if err != nil {
			return "", err
		}
	}

	name := filepath.Base(url)
	dst := filepath.Join(dir, name)

	f.L().Debug("fetching payload", "url", url, "dst", dst)

	client := &getter.Client{
		Ctx:  ctx,
		Src:  url,
		Dst:  dst,
		Mode: getter.ClientModeFile,
	}

	if err := client.Get(); err != nil {
		return "", errors.Wrapf(err, "fetching %s", url)
	}

	if f.Sums != nil {
		r, err := os.Open(dst)
		if err != nil {
			return "", err
		}

		defer r.Close()

		if err := f.Sums.Verify(name, r); err != nil {
			os.Remove(dst)
			return "", err
		}
	}

	return dst, nil
}
