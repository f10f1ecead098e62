package lockfile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// lockfileFile is the union of every Move.lock shape. The [move] version field
// selects which parts are meaningful.
type lockfileFile struct {
	Move   moveSection                   `toml:"move"`
	Pinned map[string]map[string]pinFile `toml:"pinned"`
	Env    map[string]envFile            `toml:"env"`
}

type moveSection struct {
	Version      *int          `toml:"version"`
	Dependencies []depRef      `toml:"dependencies"`
	Order        []string      `toml:"order"`
	Package      []packageFile `toml:"package"`
}

// packageFile is one [[move.package]] record. Legacy records carry a name, V3
// records an id.
type packageFile struct {
	ID           string     `toml:"id"`
	Name         string     `toml:"name"`
	Source       sourceFile `toml:"source"`
	Dependencies []depRef   `toml:"dependencies"`
}

// depRef is a dependency reference: a bare name, or a table with name and id.
type depRef struct {
	ID   string
	Name string
}

// UnmarshalTOML accepts both the string and the table form.
func (r *depRef) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		r.Name = v
	case map[string]any:
		r.ID, _ = v["id"].(string)
		r.Name, _ = v["name"].(string)
		if r.Name == "" {
			r.Name = r.ID
		}
		if r.ID == "" {
			r.ID = r.Name
		}
	default:
		return zerr.With(domain.ErrLockfileParseFailed, "dependency_type", fmt.Sprintf("%T", data))
	}
	return nil
}

// sourceFile is a pin source. It decodes from an inline table and encodes back
// to one with a fixed key order.
type sourceFile struct {
	Git    string `toml:"git"`
	Rev    string `toml:"rev"`
	Subdir string `toml:"subdir"`
	Local  string `toml:"local"`
	Root   bool   `toml:"root"`
}

func (s sourceFile) toDomain() domain.PinSource {
	switch {
	case s.Root:
		return domain.PinSource{Root: true}
	case s.Local != "":
		return domain.PinSource{Local: s.Local}
	default:
		return domain.PinSource{Git: domain.GitCoordinate{Repo: s.Git, Rev: s.Rev, Subdir: s.Subdir}.Normalized()}
	}
}

func sourceFromDomain(s domain.PinSource) sourceFile {
	switch {
	case s.Root:
		return sourceFile{Root: true}
	case s.Local != "":
		return sourceFile{Local: s.Local}
	default:
		n := s.Git.Normalized()
		return sourceFile{Git: n.Repo, Rev: n.Rev, Subdir: n.Subdir}
	}
}

// MarshalTOML renders the source as an inline table.
func (s sourceFile) MarshalTOML() ([]byte, error) {
	switch {
	case s.Root:
		return []byte("{ root = true }"), nil
	case s.Local != "":
		return []byte("{ local = " + quote(s.Local) + " }"), nil
	default:
		return []byte("{ git = " + quote(s.Git) + ", subdir = " + quote(s.Subdir) + ", rev = " + quote(s.Rev) + " }"), nil
	}
}

// pinFile is one [pinned.<env>.<id>] table.
type pinFile struct {
	Source         sourceFile `toml:"source"`
	UseEnvironment string     `toml:"use_environment,omitempty"`
	ManifestDigest string     `toml:"manifest_digest,omitempty"`
	// LegacyDigest is the hyphenated spelling written by some tools. Read only.
	LegacyDigest string   `toml:"manifest-digest,omitempty"`
	Deps         depsFile `toml:"deps"`
}

// depsFile maps dependency alias to pinned package id.
type depsFile map[string]string

var bareKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MarshalTOML renders the table inline with keys sorted.
func (d depsFile) MarshalTOML() ([]byte, error) {
	if len(d) == 0 {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{ ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		if bareKey.MatchString(k) {
			b.WriteString(k)
		} else {
			b.WriteString(quote(k))
		}
		b.WriteString(" = ")
		b.WriteString(quote(d[k]))
	}
	b.WriteString(" }")
	return []byte(b.String()), nil
}

// envFile is a legacy [env.<name>] table describing the root's publication.
type envFile struct {
	ChainID             string `toml:"chain-id"`
	OriginalPublishedID string `toml:"original-published-id"`
	LatestPublishedID   string `toml:"latest-published-id"`
	PublishedVersion    string `toml:"published-version"`
}

// v4File is the encoded shape of a V4 lockfile.
type v4File struct {
	Move   v4Move                        `toml:"move"`
	Pinned map[string]map[string]pinFile `toml:"pinned"`
}

type v4Move struct {
	Version int `toml:"version"`
}

// quote renders s as a TOML basic string.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
