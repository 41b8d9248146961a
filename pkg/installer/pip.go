package installer

import (
	"context"
	"os"

	"provis.dev/provis/pkg/directive"
	"provis.dev/provis/pkg/pyenv"
)

// PreRelease is the pre-release acceptance level of one pip
// invocation. It is threaded through explicitly and mapped onto the
// PIP_PRE / UV_PRERELEASE subprocess contract per call, on a copied
// environment, so a relaxed retry never leaks into later installs.
type PreRelease int

const (
	PreDisallowed PreRelease = iota
	PreExplicit
	PreAllow
)

// pipBackend installs with pip or uv. Directives carrying flags are
// installed one at a time, because pip applies arguments to every
// member of a batch; unflagged directives accumulate into a single
// batched install drained at flush.
type pipBackend struct {
	common

	env *pyenv.Context
	run Runner

	batch []string
}

func (b *pipBackend) environ(pre PreRelease) []string {
	env := append(os.Environ(), "UV_PYTHON="+b.env.Executable)

	switch pre {
	case PreExplicit:
		env = append(env, "PIP_PRE=1", "UV_PRERELEASE=explicit")
	case PreAllow:
		env = append(env, "PIP_PRE=1", "UV_PRERELEASE=allow")
	}

	return env
}

func (b *pipBackend) install(ctx context.Context, d *directive.Directive, opts *Options) []string {
	if d.Spec == "" {
		return nil
	}

	if !d.Flagged() {
		b.batch = append(b.batch, d.Spec)
		return nil
	}

	var args []string

	if d.NoDeps {
		args = append(args, "--no-deps")
	}

	if d.OnlyBinary {
		args = append(args, "--only-binary="+d.Name)
	}

	if d.PreferBinary {
		args = append(args, "--prefer-binary")
	}

	if d.Upgrade {
		args = append(args, "--upgrade")
	}

	for _, url := range opts.ExtraIndexURL {
		args = append(args, "--extra-index-url="+url)
	}

	for _, link := range opts.FindLinks {
		args = append(args, "--find-links="+link)
	}

	cmd := append(b.env.PipCommand(), "install")
	cmd = append(cmd, args...)
	cmd = append(cmd, d.Spec)

	pre := PreDisallowed
	if d.PreRelease {
		pre = PreExplicit
	}

	b.L().Debug("pip install", "args", cmd, "pre", pre)

	if err := b.run.Run(ctx, b.environ(pre), cmd...); err == nil {
		return []string{d.Name}
	}

	if !b.env.FinalRelease && !d.PreRelease {
		// a preview interpreter often only has a preview of the
		// package; retry exactly once with pre-releases allowed
		b.L().Debug("retrying with pre-releases allowed", "req", d.Spec)

		if err := b.run.Run(ctx, b.environ(PreAllow), cmd...); err == nil {
			return []string{d.Name}
		}
	}

	return nil
}

func (b *pipBackend) flush(ctx context.Context, opts *Options) []string {
	if len(b.batch) == 0 {
		return nil
	}

	batch := b.batch
	b.batch = nil

	cmd := append(b.env.PipCommand(), "install")

	for _, link := range opts.FindLinks {
		cmd = append(cmd, "--find-links="+link)
	}

	for _, url := range opts.ExtraIndexURL {
		cmd = append(cmd, "--extra-index-url="+url)
	}

	cmd = append(cmd, batch...)

	b.L().Debug("pip batch install", "args", cmd)

	if err := b.run.Run(ctx, b.environ(PreDisallowed), cmd...); err != nil {
		// a batch failure attributes nothing to its members
		b.L().Info("batched pip install failed", "packages", batch, "error", err)
		return nil
	}

	return batch
}
