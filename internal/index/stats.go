package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/newswirelabs/retrieval-engine/pkg/errors"
)

// StatsFileName is the statistics file written next to the index files.
const StatsFileName = "index_stats.json"

// Stats is the descriptive metadata persisted with every build and read
// back at query time to pick the dictionary variant and obtain the corpus
// size used in IDF.
type Stats struct {
	DocumentCount      int           `json:"document_count"`
	TermCount          int           `json:"term_count"`
	TermDocPairCount   int           `json:"term_document_pair_count"`
	IndexType          string        `json:"index_type"`
	IndexBuildDuration time.Duration `json:"-"`
}

// statsJSON is the persisted form of Stats. The build duration is stored
// as a duration string ("1.5s") so the stats file stays readable.
type statsJSON struct {
	DocumentCount      int    `json:"document_count"`
	TermCount          int    `json:"term_count"`
	TermDocPairCount   int    `json:"term_document_pair_count"`
	IndexType          string `json:"index_type"`
	IndexBuildDuration string `json:"index_build_duration"`
}

func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		DocumentCount:      s.DocumentCount,
		TermCount:          s.TermCount,
		TermDocPairCount:   s.TermDocPairCount,
		IndexType:          s.IndexType,
		IndexBuildDuration: s.IndexBuildDuration.String(),
	})
}

func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw statsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	duration, err := time.ParseDuration(raw.IndexBuildDuration)
	if err != nil {
		return fmt.Errorf("parsing index_build_duration %q: %w", raw.IndexBuildDuration, err)
	}
	*s = Stats{
		DocumentCount:      raw.DocumentCount,
		TermCount:          raw.TermCount,
		TermDocPairCount:   raw.TermDocPairCount,
		IndexType:          raw.IndexType,
		IndexBuildDuration: duration,
	}
	return nil
}

// WriteStats persists the stats as indented JSON in dir.
func WriteStats(dir string, stats Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index stats: %w", err)
	}
	path := filepath.Join(dir, StatsFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing index stats %s: %w", path, err)
	}
	return nil
}

// ReadStats loads the stats file from dir. A missing file is ErrNotFound;
// unparseable content is ErrCorruptData.
func ReadStats(dir string) (Stats, error) {
	var stats Stats
	path := filepath.Join(dir, StatsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, errors.Newf(errors.ErrNotFound, "index stats file %s", path)
		}
		return stats, fmt.Errorf("reading index stats %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, errors.Newf(errors.ErrCorruptData, "parsing index stats %s: %v", path, err)
	}
	return stats, nil
}
