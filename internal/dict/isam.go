package dict

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/newswirelabs/retrieval-engine/internal/codec"
	"github.com/newswirelabs/retrieval-engine/internal/index"
	"github.com/newswirelabs/retrieval-engine/pkg/errors"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
)

// ISAM files are big-endian: root is
// [count u32][{term len u16, term, leaf offset u64}...], a leaf block is
// [count u32][{term len u16, term, blob length u32, blob offset u64}...].
// Blocks hold a fixed number of entries rather than a fixed term range;
// the root carries each block's first term, so lookup still floors the
// query term over first-term boundaries.

// buildISAM writes the leaves and root files from the sorted dictionary
// entries.
func buildISAM(dir string, entries []index.DictEntry, blockSize int) error {
	if blockSize <= 0 {
		return errors.Newf(errors.ErrInvalidInput, "isam block size %d", blockSize)
	}

	leavesPath := filepath.Join(dir, ISAMLeavesFile)
	leaves, err := os.Create(leavesPath)
	if err != nil {
		return fmt.Errorf("creating isam leaves %s: %w", leavesPath, err)
	}
	defer leaves.Close()

	var roots []index.RootEntry
	w := bufio.NewWriter(leaves)
	var offset uint64
	for start := 0; start < len(entries); start += blockSize {
		end := start + blockSize
		if end > len(entries) {
			end = len(entries)
		}
		block := entries[start:end]
		roots = append(roots, index.RootEntry{Term: block[0].Term, Offset: offset})

		n, err := writeLeafBlock(w, block)
		if err != nil {
			return fmt.Errorf("writing leaf block at %d: %w", offset, err)
		}
		offset += n
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing isam leaves: %w", err)
	}
	if err := leaves.Sync(); err != nil {
		return fmt.Errorf("syncing isam leaves: %w", err)
	}

	return writeRoot(filepath.Join(dir, ISAMRootFileName), roots)
}

func writeLeafBlock(w io.Writer, block []index.DictEntry) (uint64, error) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(len(block)))
	for _, e := range block {
		binary.Write(&buf, binary.BigEndian, uint16(len(e.Term)))
		buf.WriteString(e.Term)
		binary.Write(&buf, binary.BigEndian, e.Length)
		binary.Write(&buf, binary.BigEndian, e.Offset)
	}
	n, err := w.Write(buf.Bytes())
	return uint64(n), err
}

func writeRoot(path string, roots []index.RootEntry) error {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(len(roots)))
	for _, r := range roots {
		binary.Write(&buf, binary.BigEndian, uint16(len(r.Term)))
		buf.WriteString(r.Term)
		binary.Write(&buf, binary.BigEndian, r.Offset)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing isam root %s: %w", path, err)
	}
	return nil
}

// Minimum on-disk sizes of one root entry (term length u16 + leaf
// offset u64) and one leaf entry (term length u16 + blob length u32 +
// blob offset u64), used to bound counts read from disk.
const (
	rootEntryMinSize = 10
	leafEntryMinSize = 14
)

// ISAMDictionary keeps the root index in memory and reads one leaf block
// per lookup: binary search the root for the covering block, then binary
// search the block's sorted entries.
type ISAMDictionary struct {
	roots      []index.RootEntry
	leaves     *os.File
	leavesSize int64
	postings   *os.File
	logger     *slog.Logger
}

// OpenISAM loads the root index and opens the leaves and postings files
// for the lifetime of the query session.
func OpenISAM(dir string) (*ISAMDictionary, error) {
	roots, err := readRoot(filepath.Join(dir, ISAMRootFileName))
	if err != nil {
		return nil, err
	}
	leaves, err := openIndexFile(filepath.Join(dir, ISAMLeavesFile))
	if err != nil {
		return nil, err
	}
	leavesInfo, err := leaves.Stat()
	if err != nil {
		leaves.Close()
		return nil, fmt.Errorf("stating isam leaves: %w", err)
	}
	postings, err := openIndexFile(filepath.Join(dir, PostingsFileName))
	if err != nil {
		leaves.Close()
		return nil, err
	}
	return &ISAMDictionary{
		roots:      roots,
		leaves:     leaves,
		leavesSize: leavesInfo.Size(),
		postings:   postings,
		logger:     logger.WithComponent("isam-dictionary"),
	}, nil
}

func openIndexFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "index file %s", path)
		}
		return nil, fmt.Errorf("opening index file %s: %w", path, err)
	}
	return f, nil
}

func readRoot(path string) ([]index.RootEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "isam root %s", path)
		}
		return nil, fmt.Errorf("reading isam root %s: %w", path, err)
	}
	if len(data) < 4 {
		return nil, errors.Newf(errors.ErrCorruptData, "isam root %s too short", path)
	}
	count := binary.BigEndian.Uint32(data)
	// Each root entry takes at least 10 bytes (term length, term, leaf
	// offset); a count past that is corrupt, not an allocation size.
	if uint64(count) > uint64(len(data)-4)/rootEntryMinSize {
		return nil, errors.Newf(errors.ErrCorruptData,
			"isam root %s: entry count %d exceeds file size", path, count)
	}
	pos := 4
	roots := make([]index.RootEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if pos+2 > len(data) {
			return nil, errors.Newf(errors.ErrCorruptData, "isam root %s truncated", path)
		}
		termLen := int(binary.BigEndian.Uint16(data[pos:]))
		pos += 2
		if pos+termLen+8 > len(data) {
			return nil, errors.Newf(errors.ErrCorruptData, "isam root %s truncated", path)
		}
		term := string(data[pos : pos+termLen])
		pos += termLen
		offset := binary.BigEndian.Uint64(data[pos:])
		pos += 8
		roots = append(roots, index.RootEntry{Term: term, Offset: offset})
	}
	return roots, nil
}

// Lookup returns the postings for term, empty when the term is unknown.
func (d *ISAMDictionary) Lookup(term string) (index.PostingList, error) {
	entry, ok, err := d.findEntry(term)
	if err != nil || !ok {
		return nil, err
	}
	blob := make([]byte, entry.Length)
	if _, err := d.postings.ReadAt(blob, int64(entry.Offset)); err != nil {
		return nil, errors.Newf(errors.ErrCorruptData,
			"reading postings for term %q at %d+%d: %v", term, entry.Offset, entry.Length, err)
	}
	postings, err := codec.DecompressPostings(blob)
	if err != nil {
		return nil, fmt.Errorf("decompressing postings for term %q: %w", term, err)
	}
	return postings, nil
}

// DocumentFrequency counts the postings for term. The leaf entries do not
// cache the count, so this decompresses the blob.
func (d *ISAMDictionary) DocumentFrequency(term string) (int, error) {
	postings, err := d.Lookup(term)
	if err != nil {
		return 0, err
	}
	return len(postings), nil
}

// findEntry runs the two-level search: floor the term over the root
// index, then binary search the covering leaf block.
func (d *ISAMDictionary) findEntry(term string) (index.DictEntry, bool, error) {
	if len(d.roots) == 0 {
		return index.DictEntry{}, false, nil
	}
	// Greatest root term <= query; a query below the first root term
	// still reads the first block (it can only miss there).
	i := sort.Search(len(d.roots), func(i int) bool { return d.roots[i].Term > term })
	if i > 0 {
		i--
	}

	block, err := d.readLeafBlock(d.roots[i].Offset)
	if err != nil {
		return index.DictEntry{}, false, err
	}
	j := sort.Search(len(block), func(j int) bool { return block[j].Term >= term })
	if j < len(block) && block[j].Term == term {
		return block[j], true, nil
	}
	return index.DictEntry{}, false, nil
}

func (d *ISAMDictionary) readLeafBlock(offset uint64) ([]index.DictEntry, error) {
	var header [4]byte
	if _, err := d.leaves.ReadAt(header[:], int64(offset)); err != nil {
		return nil, errors.Newf(errors.ErrCorruptData, "reading leaf block header at %d: %v", offset, err)
	}
	count := binary.BigEndian.Uint32(header[:])
	remaining := d.leavesSize - int64(offset) - 4
	if remaining < 0 || uint64(count) > uint64(remaining)/leafEntryMinSize {
		return nil, errors.Newf(errors.ErrCorruptData,
			"leaf block at %d: entry count %d exceeds file size", offset, count)
	}

	entries := make([]index.DictEntry, 0, count)
	r := bufio.NewReader(io.NewSectionReader(d.leaves, int64(offset)+4, 1<<31))
	for i := uint32(0); i < count; i++ {
		entry, err := readLeafEntry(r)
		if err != nil {
			return nil, errors.Newf(errors.ErrCorruptData,
				"reading leaf entry %d in block at %d: %v", i, offset, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func readLeafEntry(r io.Reader) (index.DictEntry, error) {
	var termLen uint16
	if err := binary.Read(r, binary.BigEndian, &termLen); err != nil {
		return index.DictEntry{}, err
	}
	term := make([]byte, termLen)
	if _, err := io.ReadFull(r, term); err != nil {
		return index.DictEntry{}, err
	}
	var entry index.DictEntry
	entry.Term = string(term)
	if err := binary.Read(r, binary.BigEndian, &entry.Length); err != nil {
		return index.DictEntry{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &entry.Offset); err != nil {
		return index.DictEntry{}, err
	}
	return entry, nil
}

// Close releases the leaves and postings file handles.
func (d *ISAMDictionary) Close() error {
	err := d.leaves.Close()
	if perr := d.postings.Close(); err == nil {
		err = perr
	}
	return err
}
