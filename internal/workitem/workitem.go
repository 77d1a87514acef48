// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workitem owns the on-disk state of one paper under review. A WorkItem
// is a directory named by the sanitized seed title; the presence of each
// artifact file records that the corresponding pipeline stage has run.
package workitem

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citereview/pkg/types"
)

// Artifact file names inside a WorkItem directory.
const (
	TitleFile       = "title.txt"
	PublishInfoFile = "publish_info.json"
	UnavailableFile = "unavailable.txt"
	FilteredFile    = "filtered_papers.json"
	CommentsFile    = "positive_comments.csv"
	StateFile       = "state.yaml"
)

// DocumentExt is the extension of downloaded full texts.
const DocumentExt = ".pdf"

// ErrNoMetadata is returned when publish_info.json is missing, unparseable or empty.
var ErrNoMetadata = errors.New("no bibliographic metadata")

// commentsHeader is the column layout of positive_comments.csv.
var commentsHeader = []string{
	"target_title", "paper_title", "has_positive_comments", "author",
	"institution", "publication", "positive_comments", "marker", "details",
}

// Item is a handle on one WorkItem directory.
type Item struct {
	Slug string
	Dir  string
}

// Path returns the absolute path of a file inside the WorkItem.
func (it Item) Path(name string) string {
	return filepath.Join(it.Dir, name)
}

// Has reports whether the named artifact exists.
func (it Item) Has(name string) bool {
	_, err := os.Stat(it.Path(name))
	return err == nil
}

// Title returns the seed title recorded at creation.
func (it Item) Title() (string, error) {
	data, err := os.ReadFile(it.Path(TitleFile))
	if err != nil {
		return "", fmt.Errorf("reading title of %s: %w", it.Slug, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Probe derives the WorkItem's status from the artifacts present. Each status
// requires all earlier ones, so an inconsistent directory reports the lowest
// complete stage.
func (it Item) Probe() types.Status {
	records, err := it.ReadRecords()
	if err != nil || len(records) == 0 {
		return types.StatusNew
	}
	if !it.Has(FilteredFile) {
		return types.StatusAcquired
	}
	if !it.Has(CommentsFile) {
		return types.StatusClassified
	}
	return types.StatusAnalyzed
}

// ReadRecords loads publish_info.json.
func (it Item) ReadRecords() ([]types.CitationRecord, error) {
	data, err := os.ReadFile(it.Path(PublishInfoFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}
	var records []types.CitationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrNoMetadata, PublishInfoFile, err)
	}
	return records, nil
}

// WriteRecords replaces publish_info.json.
func (it Item) WriteRecords(records []types.CitationRecord) error {
	if records == nil {
		records = []types.CitationRecord{}
	}
	return it.writeJSON(PublishInfoFile, records)
}

// ReadUnavailable loads unavailable.txt. A missing file is an empty list.
func (it Item) ReadUnavailable() ([]string, error) {
	data, err := os.ReadFile(it.Path(UnavailableFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var titles []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			titles = append(titles, line)
		}
	}
	return titles, nil
}

// WriteUnavailable writes unavailable.txt, one title per line. Nothing is
// written for an empty list.
func (it Item) WriteUnavailable(titles []string) error {
	if len(titles) == 0 {
		return nil
	}
	var b strings.Builder
	for _, t := range titles {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return writeFileAtomic(it.Path(UnavailableFile), []byte(b.String()))
}

// ReadDecisions loads filtered_papers.json.
func (it Item) ReadDecisions() ([]types.InclusionDecision, error) {
	data, err := os.ReadFile(it.Path(FilteredFile))
	if err != nil {
		return nil, err
	}
	var decisions []types.InclusionDecision
	if err := json.Unmarshal(data, &decisions); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FilteredFile, err)
	}
	return decisions, nil
}

// WriteDecisions replaces filtered_papers.json. An empty list is written as
// "[]" so the classified state is recorded even when nothing qualified.
func (it Item) WriteDecisions(decisions []types.InclusionDecision) error {
	if decisions == nil {
		decisions = []types.InclusionDecision{}
	}
	return it.writeJSON(FilteredFile, decisions)
}

// WriteResults writes positive_comments.csv with one row per analyzed paper.
func (it Item) WriteResults(targetTitle string, results []types.CitationContextResult) error {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(commentsHeader); err != nil {
		return err
	}
	for _, r := range results {
		comments := r.PositiveComments
		if comments == nil {
			comments = []string{}
		}
		encoded, err := json.Marshal(comments)
		if err != nil {
			return fmt.Errorf("encoding comments for %q: %w", r.PaperTitle, err)
		}
		row := []string{
			targetTitle, r.PaperTitle, strconv.FormatBool(r.HasPositiveComments), r.Author,
			r.Institution, r.Publication, string(encoded), r.Marker, r.Details,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeFileAtomic(it.Path(CommentsFile), []byte(b.String()))
}

// ReadResults loads positive_comments.csv in file order.
func (it Item) ReadResults() ([]types.CitationContextResult, error) {
	f, err := os.Open(it.Path(CommentsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s header: %w", CommentsFile, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	field := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var results []types.CitationContextResult
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", CommentsFile, err)
		}
		res := types.CitationContextResult{
			PaperTitle:  field(row, "paper_title"),
			Author:      field(row, "author"),
			Institution: field(row, "institution"),
			Publication: field(row, "publication"),
			Marker:      field(row, "marker"),
			Details:     field(row, "details"),
		}
		res.HasPositiveComments, _ = strconv.ParseBool(field(row, "has_positive_comments"))
		if raw := field(row, "positive_comments"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &res.PositiveComments); err != nil {
				res.PositiveComments = []string{raw}
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// Documents lists the downloaded full texts in lexicographic order.
func (it Item) Documents() ([]string, error) {
	entries, err := os.ReadDir(it.Dir)
	if err != nil {
		return nil, err
	}
	var docs []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), DocumentExt) {
			continue
		}
		docs = append(docs, e.Name())
	}
	sort.Strings(docs)
	return docs, nil
}

// Document is a downloaded full text inside a WorkItem.
type Document struct {
	// Name is the file name within the WorkItem directory.
	Name string
	// Path is the absolute path to the file.
	Path string
}

// Document returns the handle for the named full text.
func (it Item) Document(name string) Document {
	return Document{Name: name, Path: it.Path(name)}
}

// DocumentName is the file name a citing paper's full text is stored under.
func DocumentName(title string) string {
	return Sanitize(title) + DocumentExt
}

// FindDocument locates the full text for a record among docs: the record's own
// document field first, then the sanitized-title name, then a loose title match.
// It returns "" when none matches.
func FindDocument(rec types.CitationRecord, docs []string) string {
	contains := func(name string) bool {
		for _, d := range docs {
			if d == name {
				return true
			}
		}
		return false
	}
	if rec.Document != "" && contains(rec.Document) {
		return rec.Document
	}
	if name := DocumentName(rec.Title); contains(name) {
		return name
	}
	want := normalizeTitle(rec.Title)
	if want == "" {
		return ""
	}
	for _, d := range docs {
		if strings.Contains(normalizeTitle(strings.TrimSuffix(d, filepath.Ext(d))), want) {
			return d
		}
	}
	return ""
}

// ReadState loads state.yaml.
func (it Item) ReadState() (types.ItemState, error) {
	var st types.ItemState
	data, err := os.ReadFile(it.Path(StateFile))
	if err != nil {
		return st, err
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parsing %s: %w", StateFile, err)
	}
	return st, nil
}

// Snapshot probes the artifacts and summarizes them without writing anything.
func (it Item) Snapshot() types.ItemState {
	st := types.ItemState{
		Slug:      it.Slug,
		Status:    it.Probe(),
		UpdatedAt: time.Now().UTC(),
	}
	st.Title, _ = it.Title()
	if docs, err := it.Documents(); err == nil {
		st.Documents = len(docs)
	}
	if un, err := it.ReadUnavailable(); err == nil {
		st.Unavailable = len(un)
	}
	if ds, err := it.ReadDecisions(); err == nil {
		st.Accepted = len(ds)
	}
	if rs, err := it.ReadResults(); err == nil {
		for _, r := range rs {
			if r.HasPositiveComments {
				st.Positive++
			}
		}
	}
	return st
}

// SyncState rewrites state.yaml from a fresh Snapshot.
func (it Item) SyncState() (types.ItemState, error) {
	st := it.Snapshot()
	data, err := yaml.Marshal(st)
	if err != nil {
		return st, fmt.Errorf("marshaling state: %w", err)
	}
	return st, writeFileAtomic(it.Path(StateFile), data)
}

func (it Item) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	return writeFileAtomic(it.Path(name), data)
}

// writeFileAtomic writes data to a temp file in the destination directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	return WriteAtomic(path, bytes.NewReader(data))
}

// WriteAtomic streams r into path through a temporary file in the same
// directory, so a failed or partial write never replaces path.
func WriteAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".write-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
