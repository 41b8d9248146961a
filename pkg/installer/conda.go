package installer

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"provis.dev/provis/pkg/directive"
	"provis.dev/provis/pkg/pyenv"
)

// condaBackend installs with conda. Directives without an alias
// queue up for one batched install at flush; directives whose extra
// index carries a build for this exact interpreter are installed
// individually by URL.
type condaBackend struct {
	common

	env     *pyenv.Context
	run     Runner
	channel string

	queue []string
}

// condaBuildPy picks the interpreter tag out of a conda build string
// like "py312h06a4308_0".
var condaBuildPy = regexp.MustCompile(`py(\d+)`)

func (c *condaBackend) exe() string {
	if c.env.CondaExe != "" {
		return c.env.CondaExe
	}

	return "conda"
}

func (c *condaBackend) installArgs() []string {
	return []string{
		c.exe(), "install", "--prefix", c.env.Prefix,
		"-y", "-q", "--no-channel-priority", "-S",
	}
}

func (c *condaBackend) install(ctx context.Context, d *directive.Directive, opts *Options) []string {
	spec := d.Spec
	name := d.Name

	if d.CondaAlias != nil {
		if *d.CondaAlias == "" {
			c.L().Debug("requirement excluded on conda", "req", d.Raw)
			return nil
		}

		spec = *d.CondaAlias
		name = directive.SplitName(spec)
	} else if spec == "" {
		return nil
	}

	// Prefer an exact build for this interpreter from the extra
	// indexes. A failed search just falls through to the queue.
	var exact string

	for _, extra := range opts.ExtraIndexURL {
		channel := strings.TrimSuffix(extra, "/") + "/conda"

		out, err := c.run.Capture(ctx, nil,
			c.exe(), "search", "--override-channels", "-c", channel, name, "--json")
		if err != nil {
			c.L().Debug("conda search miss", "channel", channel, "name", name, "error", err)
			continue
		}

		if url := c.matchBuild(out, name); url != "" {
			exact = url
		}
	}

	if exact != "" {
		args := append(c.installArgs(), exact)

		if err := c.run.Run(ctx, nil, args...); err != nil {
			c.L().Info("conda install failed", "url", exact, "error", err)
			return nil
		}

		return []string{exact}
	}

	c.queue = append(c.queue, spec)

	return nil
}

func (c *condaBackend) matchBuild(out []byte, name string) string {
	var result map[string][]struct {
		Build string `json:"build"`
		URL   string `json:"url"`
	}

	if err := json.Unmarshal(out, &result); err != nil {
		return ""
	}

	for _, file := range result[name] {
		m := condaBuildPy.FindStringSubmatch(file.Build)
		if m != nil && m[1] == c.env.PythonNodot {
			return file.URL
		}
	}

	return ""
}

func (c *condaBackend) flush(ctx context.Context, opts *Options) []string {
	if len(c.queue) == 0 {
		return nil
	}

	queued := c.queue
	c.queue = nil

	args := append(c.installArgs(), "--override-channels", "-c", c.channel)
	args = append(args, queued...)

	if err := c.run.Run(ctx, nil, args...); err != nil {
		// a batch failure attributes nothing to its members
		c.L().Info("batched conda install failed", "packages", queued, "error", err)
		return nil
	}

	return queued
}
