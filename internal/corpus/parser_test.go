package corpus

import (
	"strings"
	"testing"

	"github.com/newswirelabs/retrieval-engine/pkg/errors"
)

const sampleCorpus = `
<DOC>
<DOCNO> WSJ870108-0001 </DOCNO>
<DOCID> 870108-0001. </DOCID>
<HL> Stock Market Fell Sharply </HL>
<DATE> 01/08/87 </DATE>
<SO> WALL STREET JOURNAL (J) </SO>
<TEXT>
The stock market fell sharply in heavy trading.
Blue-chip issues led the decline.
</TEXT>
</DOC>
<DOC>
<DOCNO> WSJ870108-0002 </DOCNO>
<HL> Bond Prices Rally </HL>
<TEXT>
Bond prices rallied as interest rates eased.
</TEXT>
</DOC>
`

// TestParseCorpus verifies field extraction from tagged records,
// including multiline TEXT bodies and records missing optional fields.
func TestParseCorpus(t *testing.T) {
	docs, err := NewParser().Parse(strings.NewReader(sampleCorpus))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("parsed %d documents, want 2", len(docs))
	}

	first := docs[0]
	if first.DocNo != "WSJ870108-0001" {
		t.Errorf("DocNo = %q", first.DocNo)
	}
	if first.Headline != "Stock Market Fell Sharply" {
		t.Errorf("Headline = %q", first.Headline)
	}
	if first.Date != "01/08/87" {
		t.Errorf("Date = %q", first.Date)
	}
	if first.Source != "WALL STREET JOURNAL (J)" {
		t.Errorf("Source = %q", first.Source)
	}
	if !strings.Contains(first.Content, "fell sharply") || !strings.Contains(first.Content, "Blue-chip") {
		t.Errorf("Content = %q", first.Content)
	}

	second := docs[1]
	if second.DocNo != "WSJ870108-0002" {
		t.Errorf("DocNo = %q", second.DocNo)
	}
	if second.Date != "" || second.Source != "" {
		t.Errorf("missing fields should stay empty, got date %q source %q", second.Date, second.Source)
	}
}

// TestParseSkipsEmptyDocNo verifies that a record without an identifier
// is dropped with a warning rather than failing the parse.
func TestParseSkipsEmptyDocNo(t *testing.T) {
	input := `<DOC>
<HL> Orphan Record </HL>
</DOC>
<DOC>
<DOCNO> WSJ870108-0003 </DOCNO>
</DOC>`
	docs, err := NewParser().Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 1 || docs[0].DocNo != "WSJ870108-0003" {
		t.Errorf("docs = %v, want only WSJ870108-0003", docs)
	}
}

// TestParseStructuralDamage verifies that malformed record structure is
// a corrupt-data error, not a silent skip.
func TestParseStructuralDamage(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"nested doc", "<DOC>\n<DOC>\n</DOC>"},
		{"close without open", "</DOC>"},
		{"unterminated record", "<DOC>\n<DOCNO> WSJ870108-0001 </DOCNO>"},
		{"unterminated field", "<DOC>\n<TEXT>\nsome text\n</DOC>"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := NewParser().Parse(strings.NewReader(c.input)); !errors.Is(err, errors.ErrCorruptData) {
				t.Errorf("got %v, want corrupt-data error", err)
			}
		})
	}
}

// TestParseIgnoresTextOutsideRecords verifies that stray lines between
// records do not leak into documents.
func TestParseIgnoresTextOutsideRecords(t *testing.T) {
	input := `stray header line
<DOC>
<DOCNO> WSJ870108-0004 </DOCNO>
</DOC>
stray trailer line`
	docs, err := NewParser().Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 1 || docs[0].DocNo != "WSJ870108-0004" {
		t.Errorf("docs = %v", docs)
	}
}
