package installer

import (
	"context"
	"fmt"
	"strings"

	"provis.dev/provis/pkg/directive"
	"provis.dev/provis/pkg/fetch"
	"provis.dev/provis/pkg/pyenv"
)

// pacmanBackend installs MSYS2 packages. PyPI names rarely survive
// into the MSYS2 repos unchanged (Cython stays, cx_Logging becomes
// python-cx-logging, Pillow becomes python-Pillow), so each directive
// expands into a list of candidate names tried in order.
type pacmanBackend struct {
	common

	env *pyenv.Context
	run Runner
}

// Candidates returns the package-name variants probed for name, in
// the order they are tried.
func Candidates(name string) []string {
	pkgs := []string{"python-" + name, name}

	if name != strings.ToLower(name) {
		for _, p := range pkgs[:2] {
			pkgs = append(pkgs, strings.ToLower(p))
		}
	}

	if strings.Contains(name, "_") {
		for _, p := range pkgs[:len(pkgs):len(pkgs)] {
			pkgs = append(pkgs, strings.ReplaceAll(p, "_", "-"))
		}
	} else if strings.Contains(name, "-") {
		for _, p := range pkgs[:len(pkgs):len(pkgs)] {
			pkgs = append(pkgs, strings.ReplaceAll(p, "-", "_"))
		}
	}

	return pkgs
}

func (c *pacmanBackend) install(ctx context.Context, d *directive.Directive, opts *Options) []string {
	name := d.Name

	if d.MingwAlias != nil {
		if *d.MingwAlias == "" {
			c.L().Debug("requirement excluded on mingw", "req", d.Raw)
			return nil
		}

		// the mingw alias discards any version specifier
		name = directive.SplitName(*d.MingwAlias)
	} else if name == "" {
		return nil
	}

	for _, candidate := range Candidates(name) {
		pkg := c.env.MingwPrefix + "-" + candidate

		out, err := c.run.Capture(ctx, nil, "pacman", "--noconfirm", "-Ss", pkg)
		if exitCode(err) == 1 {
			// not in the repos under this name
			continue
		}

		if err == nil && strings.Contains(string(out), "installed") {
			return []string{pkg}
		}

		if err := c.run.Run(ctx, nil, "pacman", "--noconfirm", "--needed", "-S", pkg); err == nil {
			return []string{pkg}
		}
	}

	c.L().Info("no pacman candidate found", "req", d.Raw, "name", name)

	return nil
}

func (c *pacmanBackend) flush(ctx context.Context, opts *Options) []string {
	return nil
}

// installPayload downloads a prebuilt package file from the packages
// index and installs it directly, bypassing the repos.
func (c *pacmanBackend) installPayload(ctx context.Context, f *fetch.Fetcher, name, version, baseURL string) []string {
	filename := fmt.Sprintf("%s-python-%s-%s-1-any.pkg.tar.zst",
		c.env.MingwPrefix, name, version)
	url := strings.TrimSuffix(baseURL, "/") + "/msys2/" + filename

	path, err := f.File(ctx, url)
	if err != nil {
		c.L().Info("payload download failed", "url", url, "error", err)
		return nil
	}

	if err := c.run.Run(ctx, nil, "pacman", "--noconfirm", "-U", path); err != nil {
		c.L().Info("payload install failed", "path", path, "error", err)
		return nil
	}

	return []string{strings.TrimSuffix(filename, "-1-any.pkg.tar.zst")}
}
