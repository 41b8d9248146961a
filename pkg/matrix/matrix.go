package matrix

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// StringList accepts both a JSON string and a JSON array of strings;
// matrix files use either form interchangeably.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}

		*s = strings.Split(one, ",")

		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}

	*s = many

	return nil
}

// Entry is the configuration of one sample in the test matrix.
type Entry struct {
	TestApp       string     `json:"test_app"`
	Platform      StringList `json:"platform"`
	Requirements  StringList `json:"requirements"`
	ExtraIndexURL StringList `json:"extra_index_url"`
	FindLinks     StringList `json:"find_links"`
}

// PlatformConstraint rejoins the platform list into the comma form
// the directive filter evaluates.
func (e *Entry) PlatformConstraint() string {
	return strings.Join(e.Platform, ",")
}

// Matrix maps sample names to their configuration.
type Matrix map[string]Entry

func Load(path string) (Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening matrix %s", path)
	}

	defer f.Close()

	var m Matrix

	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, errors.Wrapf(err, "decoding matrix %s", path)
	}

	return m, nil
}

// Lookup returns the entry for sample. Samples absent from the matrix
// get a default entry whose test app follows the test_<sample>
// convention.
func (m Matrix) Lookup(sample string) Entry {
	e, ok := m[sample]
	if !ok {
		e = Entry{}
	}

	if e.TestApp == "" {
		e.TestApp = "test_" + sample
	}

	return e
}

// Samples returns the configured sample names, sorted.
func (m Matrix) Samples() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
