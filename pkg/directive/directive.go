package directive

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Directive is the parsed form of one requirement line. A line names
// one pip-style requirement plus backend aliases, install flags and
// applicability constraints, all whitespace separated:
//
//	cx_Logging>=3.0 --mingw=python-cx-logging --platform=windows,mingw
//
// CondaAlias and MingwAlias are pointers because the empty string is
// meaningful: it excludes the requirement on that backend entirely,
// which is not the same as having no override.
type Directive struct {
	Raw string

	// Name is the bare distribution name, Spec the full requirement
	// including any version specifier.
	Name string
	Spec string

	CondaAlias *string
	MingwAlias *string

	NoDeps       bool
	OnlyBinary   bool
	PreRelease   bool
	PreferBinary bool
	Upgrade      bool

	// Platforms is the raw constraint list, eg "linux,!mingw".
	Platforms string

	// PythonVersion is a PEP 440 specifier set, eg ">=3.10".
	PythonVersion string
}

var nameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

// SplitName separates the distribution name from the rest of a
// requirement string ("foo>=1.0" yields "foo").
func SplitName(spec string) string {
	return nameRE.FindString(spec)
}

// Flagged reports whether the directive carries any per-install flag.
// Flagged directives must be installed individually: pip applies
// arguments to every member of a batch.
func (d *Directive) Flagged() bool {
	return d.NoDeps || d.OnlyBinary || d.PreRelease || d.PreferBinary || d.Upgrade
}

// Parse scans one requirement line. The last bare token wins as the
// requirement itself; unrecognized --flags are rejected rather than
// silently becoming package names.
func Parse(line string) (*Directive, error) {
	d := &Directive{Raw: line}

	for _, tok := range strings.Fields(line) {
		switch {
		case strings.HasPrefix(tok, "--conda="):
			// the conda alias keeps its version specifier
			alias := strings.SplitN(tok, "=", 2)[1]
			d.CondaAlias = &alias
		case strings.HasPrefix(tok, "--mingw="):
			// the mingw alias is a bare package name, any version
			// specifier is discarded by the executor
			alias := strings.SplitN(tok, "=", 2)[1]
			d.MingwAlias = &alias
		case tok == "--no-deps":
			d.NoDeps = true
		case strings.HasPrefix(tok, "--platform="):
			d.Platforms = strings.SplitN(tok, "=", 2)[1]
		case strings.HasPrefix(tok, "--python-version"):
			d.PythonVersion = tok[len("--python-version"):]
		case tok == "--only-binary":
			d.OnlyBinary = true
		case tok == "--pre":
			d.PreRelease = true
		case tok == "--prefer-binary":
			d.PreferBinary = true
		case tok == "--upgrade":
			d.Upgrade = true
		case strings.HasPrefix(tok, "--"):
			return nil, errors.Errorf("unknown flag %q in requirement %q", tok, line)
		default:
			d.Spec = tok
			d.Name = SplitName(tok)
		}
	}

	return d, nil
}
