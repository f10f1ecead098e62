package compile

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

type manifestDoc struct {
	Package   manifestPackage   `toml:"package"`
	Addresses map[string]string `toml:"addresses"`
}

type manifestPackage struct {
	Name        string `toml:"name"`
	Version     string `toml:"version,omitempty"`
	Edition     string `toml:"edition,omitempty"`
	PublishedAt string `toml:"published-at,omitempty"`
	OriginalID  string `toml:"original-id,omitempty"`
}

// reconstructManifest renders a Move.toml holding the package identity and
// mapping as its [addresses] table. The encoder sorts the table by key.
// published-at falls back to the latest address so the re-parsed package
// keeps the same build address.
func reconstructManifest(pkg *domain.Package, mapping map[string]domain.Address) (string, error) {
	doc := manifestDoc{
		Package: manifestPackage{
			Name:    pkg.Name,
			Edition: string(pkg.Edition()),
		},
		Addresses: make(map[string]string, len(mapping)),
	}
	if pkg.Manifest != nil {
		doc.Package.Version = pkg.Manifest.Version
	}

	pub := pkg.Publication
	if published, ok := domain.FirstNonZero(pub.Published, pub.Latest); ok {
		doc.Package.PublishedAt = published.String()
	}
	if !pub.Original.IsZero() {
		doc.Package.OriginalID = pub.Original.String()
	}

	for name, addr := range mapping {
		doc.Addresses[name] = addr.String()
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return "", zerr.Wrap(err, domain.ErrCompileFailed.Error())
	}
	return buf.String(), nil
}
