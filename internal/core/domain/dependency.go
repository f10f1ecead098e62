package domain

import (
	"path"
	"sort"
	"strconv"
	"strings"
)

// GitCoordinate locates a package inside a repository at a revision.
type GitCoordinate struct {
	Repo   string
	Rev    string
	Subdir string
}

// CleanSubdir normalizes a package subdirectory. The repository root is "".
func CleanSubdir(subdir string) string {
	if subdir == "" {
		return ""
	}
	cleaned := path.Clean(strings.ReplaceAll(subdir, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// Normalized returns the coordinate with a cleaned subdirectory.
func (c GitCoordinate) Normalized() GitCoordinate {
	return GitCoordinate{Repo: strings.TrimSpace(c.Repo), Rev: strings.TrimSpace(c.Rev), Subdir: CleanSubdir(c.Subdir)}
}

// Key returns the memo key "repo|rev|subdir" used to recognize a coordinate seen earlier.
func (c GitCoordinate) Key() string {
	n := c.Normalized()
	return n.Repo + "|" + n.Rev + "|" + n.Subdir
}

// IsZero reports whether the coordinate names no repository.
func (c GitCoordinate) IsZero() bool {
	return c.Repo == ""
}

// String renders the coordinate for humans.
func (c GitCoordinate) String() string {
	n := c.Normalized()
	s := n.Repo + "@" + n.Rev
	if n.Subdir != "" {
		s += "/" + n.Subdir
	}
	return s
}

// Join resolves a path relative to the coordinate's subdirectory.
// Used to rewrite local dependencies into repository coordinates.
func (c GitCoordinate) Join(rel string) GitCoordinate {
	return GitCoordinate{
		Repo:   c.Repo,
		Rev:    c.Rev,
		Subdir: CleanSubdir(path.Join(c.Subdir, filepathToSlash(rel))),
	}
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// DependencyKind tells which source variant a Dependency carries.
type DependencyKind uint8

const (
	// DependencyGit is a repository coordinate.
	DependencyGit DependencyKind = iota
	// DependencyLocal is a path relative to the declaring package.
	DependencyLocal
	// DependencySubstitution carries only an address substitution table.
	DependencySubstitution
)

// String returns the descriptor name of the kind.
func (k DependencyKind) String() string {
	switch k {
	case DependencyGit:
		return "git"
	case DependencyLocal:
		return "local"
	case DependencySubstitution:
		return "subst"
	default:
		return "unknown"
	}
}

// Dependency is one entry of a manifest's [dependencies] table.
type Dependency struct {
	// Alias is the key the dependency is declared under.
	Alias string
	Kind  DependencyKind
	Git   GitCoordinate
	Local string
	// Subst maps named addresses of the dependency to either an address literal
	// (assignment) or another named address (rename).
	Subst map[string]string
	// Override redirects every same-alias declaration in the graph to this source.
	Override bool
	// Dev marks entries from [dev-dependencies].
	Dev bool
	// Implicit marks system dependencies added without a declaration.
	Implicit bool
}

// Descriptor renders the dependency's replacement descriptor in a canonical,
// fixed-field-order form. It is the unit hashed into manifest digests.
func (d Dependency) Descriptor() string {
	var b strings.Builder
	b.WriteString("kind=" + d.Kind.String())
	switch d.Kind {
	case DependencyGit:
		n := d.Git.Normalized()
		b.WriteString(";git=" + strconv.Quote(n.Repo))
		b.WriteString(";rev=" + strconv.Quote(n.Rev))
		b.WriteString(";subdir=" + strconv.Quote(n.Subdir))
	case DependencyLocal:
		b.WriteString(";local=" + strconv.Quote(filepathToSlash(d.Local)))
	case DependencySubstitution:
	}
	if d.Override {
		b.WriteString(";override=true")
	}
	if len(d.Subst) > 0 {
		keys := make([]string, 0, len(d.Subst))
		for k := range d.Subst {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(";subst={")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(strconv.Quote(k) + "=" + strconv.Quote(d.Subst[k]))
		}
		b.WriteString("}")
	}
	return b.String()
}
