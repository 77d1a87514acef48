// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workitem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Corpus-level output file names.
const (
	SummaryFile          = "final.csv"
	UnavailableTableFile = "unavailable.csv"
	NotFullListFile      = "not_full_list.txt"
)

// Corpus is the directory holding every WorkItem.
type Corpus struct {
	Root string
}

// Open returns the handle for a slug without touching the filesystem.
func (c Corpus) Open(slug string) Item {
	return Item{Slug: slug, Dir: filepath.Join(c.Root, slug)}
}

// ForTitle returns the handle for a seed title.
func (c Corpus) ForTitle(title string) Item {
	return c.Open(Sanitize(title))
}

// Create makes the WorkItem directory for title and records title.txt. If the
// directory already exists it is left untouched and created is false.
func (c Corpus) Create(title string) (item Item, created bool, err error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Item{}, false, fmt.Errorf("empty seed title")
	}
	item = c.ForTitle(title)
	if _, err := os.Stat(item.Dir); err == nil {
		if !item.Has(TitleFile) {
			return item, false, writeFileAtomic(item.Path(TitleFile), []byte(title))
		}
		return item, false, nil
	}
	if err := os.MkdirAll(item.Dir, 0o755); err != nil {
		return Item{}, false, fmt.Errorf("creating %s: %w", item.Dir, err)
	}
	if err := writeFileAtomic(item.Path(TitleFile), []byte(title)); err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

// Items enumerates WorkItems (subdirectories holding a title.txt) in
// lexicographic slug order.
func (c Corpus) Items() ([]Item, error) {
	entries, err := os.ReadDir(c.Root)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", c.Root, err)
	}
	var items []Item
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		it := c.Open(e.Name())
		if !it.Has(TitleFile) {
			continue
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Slug < items[j].Slug })
	return items, nil
}

// Cleanup removes every WorkItem whose publish_info.json is missing,
// unparseable or empty, and returns the removed slugs.
func (c Corpus) Cleanup(log zerolog.Logger) ([]string, error) {
	items, err := c.Items()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, it := range items {
		records, err := it.ReadRecords()
		if err == nil && len(records) > 0 {
			continue
		}
		if err := os.RemoveAll(it.Dir); err != nil {
			log.Warn().Err(err).Str("item", it.Slug).Msg("cleanup failed")
			continue
		}
		log.Info().Str("item", it.Slug).Msg("removed item without metadata")
		removed = append(removed, it.Slug)
	}
	return removed, nil
}

// WriteNotFullList records seeds whose acquisition did not complete, one per line.
func (c Corpus) WriteNotFullList(titles []string) error {
	var b strings.Builder
	for _, t := range titles {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return writeFileAtomic(filepath.Join(c.Root, NotFullListFile), []byte(b.String()))
}

// WriteFile atomically replaces a corpus-level file.
func (c Corpus) WriteFile(name string, data []byte) error {
	return writeFileAtomic(c.Path(name), data)
}

// Path returns a corpus-level path.
func (c Corpus) Path(name string) string {
	return filepath.Join(c.Root, name)
}
