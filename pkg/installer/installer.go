package installer

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"provis.dev/provis/pkg/config"
	"provis.dev/provis/pkg/directive"
	"provis.dev/provis/pkg/progress"
	"provis.dev/provis/pkg/pyenv"
)

// Options applies to one Install call as a whole.
type Options struct {
	ExtraIndexURL []string
	FindLinks     []string

	// Upgrade makes --upgrade the default for every directive, the
	// PIP_UPGRADE contract.
	Upgrade bool
}

// strategy is one of the three installation backends. install handles
// a single directive, flush drains any batch the backend accumulated.
// Both report the identifiers they installed; failures degrade to an
// empty result, they never abort the run.
type strategy interface {
	install(ctx context.Context, d *directive.Directive, opts *Options) []string
	flush(ctx context.Context, opts *Options) []string
	SetLogger(logger hclog.Logger)
}

// Installer dispatches parsed requirement directives to the single
// backend its environment context selects.
type Installer struct {
	common

	env *pyenv.Context
	cfg *config.Config
	be  strategy
}

// New selects the backend for this run. The choice is made once here,
// from the context, and never revisited per directive.
func New(env *pyenv.Context, cfg *config.Config, runner Runner) *Installer {
	if runner == nil {
		runner = ExecRunner{}
	}

	p := &Installer{env: env, cfg: cfg}

	switch env.Backend() {
	case pyenv.BackendConda:
		p.be = &condaBackend{
			env:     env,
			run:     runner,
			channel: cfg.CondaChannel,
		}
	case pyenv.BackendPacman:
		p.be = &pacmanBackend{env: env, run: runner}
	default:
		p.be = &pipBackend{env: env, run: runner}
	}

	return p
}

// Install processes raw requirement lines in input order and returns
// the identifiers of everything that was installed, in invocation
// order. The returned error aggregates lines that failed to parse;
// installation failures only show up as absences from the result.
func (p *Installer) Install(ctx context.Context, requires []string, opts Options) ([]string, error) {
	p.be.SetLogger(p.L())

	var (
		installed []string
		merr      *multierror.Error
	)

	bar := progress.Count(ctx, int64(len(requires)), "installing requirements")
	defer bar.Close()

	for _, req := range requires {
		bar.On(strings.TrimSpace(req))

		d, err := directive.Parse(req)
		if err != nil {
			p.L().Warn("skipping unparseable requirement", "req", req, "error", err)
			merr = multierror.Append(merr, err)
			bar.Tick()
			continue
		}

		if opts.Upgrade {
			d.Upgrade = true
		}

		if !d.Applies(p.env.PlatformTag, p.env.PythonVersion) {
			p.L().Debug("requirement filtered out", "req", req,
				"platform", p.env.PlatformTag, "python", p.env.PythonVersion)
			bar.Tick()
			continue
		}

		installed = append(installed, p.be.install(ctx, d, &opts)...)
		bar.Tick()
	}

	installed = append(installed, p.be.flush(ctx, &opts)...)

	return installed, merr.ErrorOrNil()
}
