package manifest

import (
	"github.com/BurntSushi/toml"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/zerr"
)

// ParsePublished decodes the [published.<env>] entry of Published.toml text.
// The published-at address is the latest deployment; original-id is the linkage address.
func (p *Parser) ParsePublished(text, env string) (domain.Publication, bool, error) {
	var doc publishedFile
	if _, err := toml.Decode(text, &doc); err != nil {
		return domain.Publication{}, false, zerr.Wrap(err, domain.ErrPublishedParseFailed.Error())
	}

	entry, ok := doc.Published[env]
	if !ok {
		return domain.Publication{}, false, nil
	}

	latest, err := optionalAddress(entry.PublishedAt)
	if err != nil {
		return domain.Publication{}, false, zerr.With(zerr.With(err, "field", "published-at"), "env", env)
	}
	original, err := optionalAddress(entry.OriginalID)
	if err != nil {
		return domain.Publication{}, false, zerr.With(zerr.With(err, "field", "original-id"), "env", env)
	}

	return domain.Publication{Original: original, Published: latest, Latest: latest}, true, nil
}
