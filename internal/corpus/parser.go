package corpus

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/newswirelabs/retrieval-engine/pkg/errors"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
)

// Field tags of a newswire corpus record. HL is the headline and SO the
// source attribution, following the corpus's own tag names.
var fieldTags = []string{"DOCNO", "DOCID", "HL", "DATE", "SO", "TEXT"}

// Parser reads tagged-record corpus files into Documents.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a corpus parser.
func NewParser() *Parser {
	return &Parser{logger: logger.WithComponent("corpus-parser")}
}

// ParseFile parses every <DOC> record in the file at path.
func (p *Parser) ParseFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "corpus file %s", path)
		}
		return nil, fmt.Errorf("opening corpus file %s: %w", path, err)
	}
	defer f.Close()
	docs, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}
	return docs, nil
}

// Parse reads tagged records from r. Records with an empty DOCNO are
// skipped with a warning; structural damage (a <DOC> inside an open
// record, a field at EOF with no closing tag) is a corrupt-data error.
func (p *Parser) Parse(r io.Reader) ([]Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var docs []Document
	var current map[string]string
	var openField string
	var fieldBody strings.Builder
	line := 0

	for scanner.Scan() {
		line++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)

		switch {
		case trimmed == "<DOC>":
			if current != nil {
				return nil, errors.Newf(errors.ErrCorruptData,
					"line %d: <DOC> inside an open record", line)
			}
			current = make(map[string]string, len(fieldTags))
		case trimmed == "</DOC>":
			if current == nil {
				return nil, errors.Newf(errors.ErrCorruptData,
					"line %d: </DOC> without an open record", line)
			}
			if openField != "" {
				return nil, errors.Newf(errors.ErrCorruptData,
					"line %d: record closed inside <%s>", line, openField)
			}
			doc := documentFromFields(current)
			if doc.DocNo == "" {
				p.logger.Warn("skipping record with empty DOCNO", "line", line)
			} else {
				docs = append(docs, doc)
			}
			current = nil
		case current == nil || trimmed == "":
			// Text outside records is ignored, as are blank lines.
		case openField != "":
			if trimmed == "</"+openField+">" {
				current[openField] = strings.TrimSpace(fieldBody.String())
				openField = ""
			} else {
				fieldBody.WriteString(text)
				fieldBody.WriteString("\n")
			}
		default:
			tag, body, closed := matchFieldLine(trimmed)
			if tag == "" {
				continue
			}
			if closed {
				current[tag] = body
			} else {
				openField = tag
				fieldBody.Reset()
				fieldBody.WriteString(body)
				if body != "" {
					fieldBody.WriteString("\n")
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	if current != nil {
		return nil, errors.New(errors.ErrCorruptData, "unterminated <DOC> record at end of input")
	}
	p.logger.Info("corpus parsed", "documents", len(docs))
	return docs, nil
}

// matchFieldLine recognises "<TAG>body</TAG>" and "<TAG>body" openings for
// the known field tags. Unknown tags are ignored.
func matchFieldLine(line string) (tag, body string, closed bool) {
	for _, t := range fieldTags {
		open := "<" + t + ">"
		if !strings.HasPrefix(line, open) {
			continue
		}
		rest := line[len(open):]
		if end := "</" + t + ">"; strings.HasSuffix(rest, end) {
			return t, strings.TrimSpace(rest[:len(rest)-len(end)]), true
		}
		return t, strings.TrimSpace(rest), false
	}
	return "", "", false
}

func documentFromFields(fields map[string]string) Document {
	return Document{
		DocNo:    fields["DOCNO"],
		DocID:    fields["DOCID"],
		Headline: fields["HL"],
		Date:     fields["DATE"],
		Source:   fields["SO"],
		Content:  fields["TEXT"],
	}
}
