package pyproject

import (
	"regexp"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// comparisonRE matches one marker comparison, eg
// python_version >= "3.10" or sys_platform == 'win32'.
var comparisonRE = regexp.MustCompile(
	`^\s*(\w+)\s*(===|==|!=|>=|<=|>|<|~=)\s*['"]?([^'"]*?)['"]?\s*$`)

// EvalMarker evaluates the small environment-marker subset build
// matrices actually use: python_version, python_full_version,
// sys_platform and platform_system, combined with "and"/"or".
// Anything it cannot evaluate keeps the dependency (fail open).
func EvalMarker(marker, pythonVersion, platformTag string) bool {
	if marker == "" {
		return true
	}

	if strings.Contains(marker, " or ") {
		for _, clause := range strings.Split(marker, " or ") {
			if EvalMarker(clause, pythonVersion, platformTag) {
				return true
			}
		}

		return false
	}

	for _, clause := range strings.Split(marker, " and ") {
		if !evalComparison(clause, pythonVersion, platformTag) {
			return false
		}
	}

	return true
}

func evalComparison(clause, pythonVersion, platformTag string) bool {
	m := comparisonRE.FindStringSubmatch(clause)
	if m == nil {
		return true
	}

	variable, op, value := m[1], m[2], m[3]

	switch variable {
	case "python_version":
		return compareVersion(majorMinor(pythonVersion), op, value)
	case "python_full_version":
		return compareVersion(pythonVersion, op, value)
	case "sys_platform":
		return compareString(sysPlatform(platformTag), op, value)
	case "platform_system":
		return compareString(platformSystem(platformTag), op, value)
	}

	return true
}

func compareVersion(current, op, value string) bool {
	specs, err := pep440.NewSpecifiers(op + value)
	if err != nil {
		return true
	}

	v, err := pep440.Parse(current)
	if err != nil {
		return true
	}

	return specs.Check(v)
}

func compareString(current, op, value string) bool {
	switch op {
	case "==":
		return current == value
	case "!=":
		return current != value
	}

	return true
}

func majorMinor(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return version
	}

	return parts[0] + "." + parts[1]
}

// sysPlatform maps a platform tag to the interpreter's sys.platform.
// MSYS2 interpreters report win32 like any other Windows build.
func sysPlatform(tag string) string {
	switch tag {
	case "windows", "mingw":
		return "win32"
	case "macos":
		return "darwin"
	default:
		return "linux"
	}
}

func platformSystem(tag string) string {
	switch tag {
	case "windows", "mingw":
		return "Windows"
	case "macos":
		return "Darwin"
	default:
		return "Linux"
	}
}
