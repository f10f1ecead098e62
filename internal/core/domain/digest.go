package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ManifestDigest returns the uppercase hex SHA-256 of raw manifest text.
func ManifestDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// CanonicalDependencies serializes an alias -> replacement descriptor table with
// one "alias<TAB>descriptor" line per entry, sorted by alias. Later duplicates of
// an alias are ignored.
func CanonicalDependencies(deps []Dependency) string {
	seen := make(map[string]bool, len(deps))
	lines := make([]string, 0, len(deps))
	for _, d := range deps {
		if seen[d.Alias] {
			continue
		}
		seen[d.Alias] = true
		lines = append(lines, d.Alias+"\t"+d.Descriptor())
	}
	sort.Strings(lines)

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// DependencyDigest returns the uppercase hex SHA-256 of CanonicalDependencies.
func DependencyDigest(deps []Dependency) string {
	return ManifestDigest(CanonicalDependencies(deps))
}

// PinMatches reports whether a pin still describes a package whose raw manifest is
// text and whose effective dependency table is deps. A pin without a digest matches.
// Both the raw-text digest and the canonical dependency digest are accepted.
func PinMatches(pin Pin, text string, deps []Dependency) bool {
	if pin.ManifestDigest == "" {
		return true
	}
	stored := strings.ToUpper(strings.TrimSpace(pin.ManifestDigest))
	return stored == ManifestDigest(text) || stored == DependencyDigest(deps)
}
