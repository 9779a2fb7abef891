package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoEntries is returned when no dataset source yields a single entry.
var ErrNoEntries = errors.New("corpus: no entries loaded from any source")

// datasetFile is the on-disk shape of a dataset source: either an object
// with an "entries" array or a bare array of metadata records.
type datasetFile struct {
	Entries []Metadata `json:"entries"`
}

// LoadFiles reads dataset JSON files and flattens them into ordered entries.
// Unreadable or unparseable sources are logged and skipped; the load fails
// only if zero sources yield any entries.
func LoadFiles(paths []string, logger *slog.Logger) ([]Entry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var entries []Entry
	for _, path := range paths {
		metas, err := readDataset(path)
		if err != nil {
			logger.Warn("corpus: skipping dataset", "path", path, "err", err)
			continue
		}

		category := CategoryFromFilename(path)
		for _, meta := range metas {
			meta.Category = category
			entries = append(entries, NewEntry(meta, len(entries)))
		}
		logger.Info("corpus: dataset loaded", "category", category, "entries", len(metas))
	}

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

func readDataset(path string) ([]Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}

	var file datasetFile
	if err := json.Unmarshal(data, &file); err == nil && file.Entries != nil {
		return file.Entries, nil
	}

	var bare []Metadata
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("corpus: parse %s: %w", path, err)
	}
	return bare, nil
}

// CategoryFromFilename derives the dataset category from a filename like
// "master_digestive_dataset.json".
func CategoryFromFilename(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.TrimPrefix(name, "master_")
	name = strings.TrimSuffix(name, "_dataset")
	return name
}

// FindDatasets globs a directory for dataset files.
func FindDatasets(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "master_*_dataset.json"))
	if err != nil {
		return nil, fmt.Errorf("corpus: glob %s: %w", dir, err)
	}
	return paths, nil
}
