package pyproject

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"provis.dev/provis/pkg/directive"
)

// Project is the subset of pyproject.toml this tool consumes.
type Project struct {
	Name    string
	Version string

	// BuildRequires is build-system.requires, markers included.
	BuildRequires []string

	// Dependencies is project.dependencies, markers included.
	Dependencies []string
}

type pyprojectTOML struct {
	BuildSystem struct {
		Requires []string `toml:"requires"`
	} `toml:"build-system"`

	Project struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

func Load(path string) (*Project, error) {
	var raw pyprojectTOML

	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}

	return &Project{
		Name:          raw.Project.Name,
		Version:       raw.Project.Version,
		BuildRequires: raw.BuildSystem.Requires,
		Dependencies:  raw.Project.Dependencies,
	}, nil
}

// SplitMarker separates a requirement from its environment marker.
func SplitMarker(req string) (spec, marker string) {
	if i := strings.IndexByte(req, ';'); i != -1 {
		return strings.TrimSpace(req[:i]), strings.TrimSpace(req[i+1:])
	}

	return strings.TrimSpace(req), ""
}

// BasicRequirements resolves project.dependencies against the current
// environment: dependencies whose marker does not match are dropped,
// the build-system pin is preferred over the project pin for the same
// name, and extras appends configured directive tokens per package.
// Order follows project.dependencies.
func (p *Project) BasicRequirements(pythonVersion, platformTag string, extras map[string]string) []string {
	pinned := make(map[string]string)

	for _, req := range p.BuildRequires {
		spec, _ := SplitMarker(req)
		if name := directive.SplitName(spec); name != "" {
			pinned[name] = spec
		}
	}

	var out []string

	for _, req := range p.Dependencies {
		spec, marker := SplitMarker(req)

		if !EvalMarker(marker, pythonVersion, platformTag) {
			continue
		}

		name := directive.SplitName(spec)
		if name == "" {
			continue
		}

		if pin, ok := pinned[name]; ok {
			spec = pin
		}

		if extra, ok := extras[name]; ok {
			spec += " " + extra
		}

		out = append(out, spec)
	}

	return out
}
