package installer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"provis.dev/provis/pkg/fetch"
)

// InstallPrebuilt installs a specific build of the project under test
// from the configured packages index: a direct payload on MSYS2, a
// lower-cased name on conda, and a pre-release pin through the extra
// index everywhere else.
func (p *Installer) InstallPrebuilt(ctx context.Context, f *fetch.Fetcher, name, version string) ([]string, error) {
	p.be.SetLogger(p.L())

	switch be := p.be.(type) {
	case *pacmanBackend:
		if p.cfg.PackagesIndexURL == "" {
			return nil, errors.New("no packages index configured")
		}

		pkg := strings.ToLower(strings.ReplaceAll(name, "_", "-"))

		return be.installPayload(ctx, f, pkg, version, p.cfg.PackagesIndexURL), nil
	case *condaBackend:
		return p.Install(ctx, []string{strings.ToLower(name)}, Options{})
	default:
		req := fmt.Sprintf("%s~=%s --pre --no-deps", name, series(version))

		var opts Options
		if p.cfg.PackagesIndexURL != "" {
			opts.ExtraIndexURL = []string{p.cfg.PackagesIndexURL}
		}

		return p.Install(ctx, []string{req}, opts)
	}
}

// series widens a version to its release series: 8.1.3 becomes 8.1.0,
// so ~= accepts any micro release of the same minor.
func series(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return version
	}

	parts[len(parts)-1] = "0"

	return strings.Join(parts, ".")
}
