// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadSeedsFile reads seed titles from path. Files ending in .csv are read as
// CSV with a header row, taking column (or the first column when empty);
// anything else is one title per line with blank lines and #-comments skipped.
// Duplicate titles are dropped, keeping the first occurrence.
func ReadSeedsFile(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seeds file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCSVSeeds(f, column)
	}
	return readLineSeeds(f)
}

func readLineSeeds(r io.Reader) ([]string, error) {
	var seeds []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading seeds: %w", err)
	}
	return Dedupe(seeds), nil
}

func readCSVSeeds(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading seeds header: %w", err)
	}
	idx := 0
	if column != "" {
		idx = -1
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), column) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("seeds file has no column %q", column)
		}
	}

	var seeds []string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading seeds: %w", err)
		}
		if idx < len(row) {
			if title := strings.TrimSpace(row[idx]); title != "" {
				seeds = append(seeds, title)
			}
		}
	}
	return Dedupe(seeds), nil
}

// Dedupe removes repeated titles, keeping first-seen order.
func Dedupe(titles []string) []string {
	seen := make(map[string]bool, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
