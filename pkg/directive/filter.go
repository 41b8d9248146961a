package directive

import (
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// SupportedPlatform evaluates a platform constraint against the
// current platform tag. The constraint is a comma list of tags, each
// optionally prefixed with ! for exclusion. Inclusion tags replace the
// whole universe, exclusions subtract afterwards, so "!windows" keeps
// the other three tags while "linux,!linux" supports nothing.
func SupportedPlatform(constraint, current string) bool {
	if constraint == "" {
		return true
	}

	supported := map[string]bool{
		"linux":   true,
		"macos":   true,
		"mingw":   true,
		"windows": true,
	}

	var include, exclude []string

	for _, tag := range strings.Split(constraint, ",") {
		if strings.HasPrefix(tag, "!") {
			exclude = append(exclude, tag[1:])
		} else if tag != "" {
			include = append(include, tag)
		}
	}

	if len(include) > 0 {
		supported = map[string]bool{}
		for _, tag := range include {
			supported[tag] = true
		}
	}

	for _, tag := range exclude {
		delete(supported, tag)
	}

	return supported[current]
}

// SupportedPython reports whether the interpreter version satisfies
// the given PEP 440 specifier set. When either side fails to parse we
// degrade to supported, matching the optional nature of the check.
func SupportedPython(specifier, version string) bool {
	if specifier == "" {
		return true
	}

	specifier = strings.NewReplacer(`'`, "", `"`, "").Replace(specifier)

	specs, err := pep440.NewSpecifiers(specifier)
	if err != nil {
		return true
	}

	v, err := pep440.Parse(version)
	if err != nil {
		return true
	}

	return specs.Check(v)
}

// Applies combines both filters for one directive.
func (d *Directive) Applies(platformTag, pythonVersion string) bool {
	if !SupportedPlatform(d.Platforms, platformTag) {
		return false
	}

	return SupportedPython(d.PythonVersion, pythonVersion)
}
