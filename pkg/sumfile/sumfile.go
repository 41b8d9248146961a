package sumfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Sumfile records known checksums for downloaded payloads, one per
// line in the form "algo:base58-hash name". Only b2 (blake2b-256) is
// produced; other algorithms load fine but never verify.
type Sumfile struct {
	entries map[string]entry
}

type entry struct {
	algo string
	hash []byte
}

func (s *Sumfile) Load(r io.Reader) error {
	if s.entries == nil {
		s.entries = make(map[string]entry)
	}

	scan := bufio.NewScanner(r)

	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		colon := strings.IndexByte(line, ':')
		space := strings.IndexByte(line, ' ')
		if colon == -1 || space == -1 || colon > space {
			continue
		}

		hash, err := base58.Decode(line[colon+1 : space])
		if err != nil {
			return errors.Wrapf(err, "bad hash for %q", line[space+1:])
		}

		s.entries[strings.TrimSpace(line[space+1:])] = entry{
			algo: line[:colon],
			hash: hash,
		}
	}

	return scan.Err()
}

// Add records the blake2b sum of the given content under name and
// returns the printable "algo:hash" form.
func (s *Sumfile) Add(name string, r io.Reader) (string, error) {
	if s.entries == nil {
		s.entries = make(map[string]entry)
	}

	h, _ := blake2b.New256(nil)

	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	e := entry{algo: "b2", hash: h.Sum(nil)}
	s.entries[name] = e

	return e.algo + ":" + base58.Encode(e.hash), nil
}

// Lookup returns the recorded algorithm and hash for name.
func (s *Sumfile) Lookup(name string) (string, []byte, bool) {
	e, ok := s.entries[name]
	if !ok {
		return "", nil, false
	}

	return e.algo, e.hash, true
}

// Verify checks content against the recorded sum for name. A name
// with no recorded sum verifies successfully.
func (s *Sumfile) Verify(name string, r io.Reader) error {
	e, ok := s.entries[name]
	if !ok {
		return nil
	}

	if e.algo != "b2" {
		return errors.Errorf("unknown sum algorithm %q for %q", e.algo, name)
	}

	h, _ := blake2b.New256(nil)

	if _, err := io.Copy(h, r); err != nil {
		return err
	}

	if !bytes.Equal(h.Sum(nil), e.hash) {
		return errors.Errorf("checksum mismatch for %q", name)
	}

	return nil
}

func (s *Sumfile) Save(w io.Writer) error {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		e := s.entries[name]
		fmt.Fprintf(w, "%s:%s %s\n", e.algo, base58.Encode(e.hash), name)
	}

	return nil
}
