// Package corpus handles the document side of the engine: the tagged
// record parser, the text normaliser shared by build and query paths, and
// the document store backends.
package corpus

import (
	"strings"

	"github.com/newswirelabs/retrieval-engine/pkg/errors"
)

// Document is one immutable corpus record. DocNo is the primary key, a
// formatted accession identifier like "WSJ870108-0001".
type Document struct {
	DocNo    string `json:"id"`
	DocID    string `json:"alt_id"`
	Headline string `json:"headline"`
	Date     string `json:"date"`
	Source   string `json:"source"`
	Content  string `json:"content"`
}

// SearchableText concatenates every field of the document; term
// frequencies are counted over this combined text.
func (d Document) SearchableText() string {
	parts := make([]string, 0, 6)
	for _, f := range []string{d.DocNo, d.DocID, d.Headline, d.Date, d.Source, d.Content} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// Validate checks the fields a build depends on.
func (d Document) Validate() error {
	if strings.TrimSpace(d.DocNo) == "" {
		return errors.New(errors.ErrInvalidInput, "document has no id")
	}
	return nil
}
