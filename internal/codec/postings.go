package codec

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/newswirelabs/retrieval-engine/internal/index"
	"github.com/newswirelabs/retrieval-engine/pkg/errors"
)

// postingsFormatVersion is the first byte of every compressed blob.
const postingsFormatVersion = 1

// docNoDigits is the numeric width of a conforming document identifier:
// six date-derived digits and a four-digit sequence.
const (
	docNoDateDigits = 6
	docNoSeqDigits  = 4
	docNoDigits     = docNoDateDigits + docNoSeqDigits
)

// docNoPattern is the identifier shape the codec can round-trip:
// an alphabetic source prefix, six digits, a hyphen, four digits.
var docNoPattern = regexp.MustCompile(`^([A-Za-z]+)(\d{6})-(\d{4})$`)

// splitDocNo validates a document identifier and returns its alphabetic
// prefix and its ten digits parsed as a single unsigned integer.
func splitDocNo(docNo string) (string, uint64, error) {
	m := docNoPattern.FindStringSubmatch(docNo)
	if m == nil {
		return "", 0, errors.Newf(errors.ErrInvalidInput,
			"document id %q does not match the prefix+%d-%d shape required by the postings codec",
			docNo, docNoDateDigits, docNoSeqDigits)
	}
	numeric, err := strconv.ParseUint(m[2]+m[3], 10, 64)
	if err != nil {
		return "", 0, errors.Newf(errors.ErrInvalidInput, "document id %q: %v", docNo, err)
	}
	return m[1], numeric, nil
}

// renderDocNo reverses splitDocNo: zero-pad the numeric value to ten
// digits and re-insert the prefix and the hyphen after the sixth digit.
func renderDocNo(prefix string, numeric uint64) string {
	digits := fmt.Sprintf("%0*d", docNoDigits, numeric)
	return prefix + digits[:docNoDateDigits] + "-" + digits[docNoDateDigits:]
}

// CompressPostings serialises a postings list into a compact blob:
// format version, posting count, the shared identifier prefix, then one
// (zigzag delta, frequency) pair per posting. Deltas are computed over
// the list order with an implicit previous value of zero, so decompression
// must replay the identical order.
//
// Every identifier must conform to the prefix+6-4 shape and share the
// blob's prefix; a non-conforming identifier fails the build rather than
// silently writing a blob that cannot round-trip.
func CompressPostings(postings index.PostingList) ([]byte, error) {
	if len(postings) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "cannot compress an empty postings list")
	}
	prefix, _, err := splitDocNo(postings[0].DocNo)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 3+len(prefix)+2*len(postings))
	buf = append(buf, postingsFormatVersion)
	buf = AppendUint(buf, uint64(len(postings)))
	buf = AppendUint(buf, uint64(len(prefix)))
	buf = append(buf, prefix...)

	var prev uint64
	for _, p := range postings {
		pfx, numeric, err := splitDocNo(p.DocNo)
		if err != nil {
			return nil, err
		}
		if pfx != prefix {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"document id %q has prefix %q, blob prefix is %q", p.DocNo, pfx, prefix)
		}
		buf = AppendInt(buf, int64(numeric)-int64(prev))
		buf = AppendUint(buf, uint64(p.Frequency))
		prev = numeric
	}
	return buf, nil
}

// DecompressPostings reverses CompressPostings, reconstructing each
// identifier from the running delta sum and the blob's prefix.
func DecompressPostings(data []byte) (index.PostingList, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCorruptData, "empty postings blob")
	}
	if data[0] != postingsFormatVersion {
		return nil, errors.Newf(errors.ErrCorruptData,
			"unsupported postings format version %d", data[0])
	}
	pos := 1

	count, pos, err := DecodeUint(data, pos)
	if err != nil {
		return nil, err
	}
	prefixLen, pos, err := DecodeUint(data, pos)
	if err != nil {
		return nil, err
	}
	if prefixLen > uint64(len(data)-pos) {
		return nil, errors.New(errors.ErrCorruptData, "postings blob truncated in prefix")
	}
	prefix := string(data[pos : pos+int(prefixLen)])
	pos += int(prefixLen)

	// A corrupt count must not size an allocation: every posting takes
	// at least two bytes, so bound it by the remaining input.
	if count > uint64(len(data)-pos)/2 {
		return nil, errors.Newf(errors.ErrCorruptData,
			"posting count %d exceeds blob capacity", count)
	}

	postings := make(index.PostingList, 0, count)
	var prev uint64
	for i := uint64(0); i < count; i++ {
		var delta int64
		delta, pos, err = DecodeInt(data, pos)
		if err != nil {
			return nil, err
		}
		var freq uint64
		freq, pos, err = DecodeUint(data, pos)
		if err != nil {
			return nil, err
		}
		numeric := uint64(int64(prev) + delta)
		postings = append(postings, index.Posting{
			DocNo:     renderDocNo(prefix, numeric),
			Frequency: uint32(freq),
		})
		prev = numeric
	}
	if pos != len(data) {
		return nil, errors.Newf(errors.ErrCorruptData,
			"%d trailing bytes after postings blob", len(data)-pos)
	}
	return postings, nil
}
