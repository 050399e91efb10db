package aggregate

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/codemine/core"
)

// FileManifest describes a file as the chunker saw it.
type FileManifest struct {
	Path        string
	Language    core.Language
	TotalChunks int
}

type fileState struct {
	manifest FileManifest
	expected bool
	records  map[int]core.ExtractionRecord
}

// Aggregator collects records as they complete and builds the document on
// demand. Safe for concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	files map[string]*fileState
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{files: make(map[string]*fileState)}
}

// Aggregate builds a document from a manifest and a batch of records.
func Aggregate(manifest []FileManifest, records []core.ExtractionRecord) *core.KnowledgeDocument {
	a := New()
	for _, m := range manifest {
		a.Expect(m)
	}
	for _, r := range records {
		a.Add(r)
	}
	return a.Document()
}

// Expect registers a file and its chunk count. Files expecting zero chunks
// are left out of the document.
func (a *Aggregator) Expect(m FileManifest) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fs := a.file(m.Path)
	fs.manifest = m
	fs.expected = true
}

// Add accepts one record. When two records share a chunk identity the one
// that sorts first by raw text, then overview, is kept.
func (a *Aggregator) Add(r core.ExtractionRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fs := a.file(r.Chunk.File)
	if prev, ok := fs.records[r.Index()]; ok && !precedes(r, prev) {
		return
	}
	fs.records[r.Index()] = r
}

func (a *Aggregator) file(path string) *fileState {
	fs, ok := a.files[path]
	if !ok {
		fs = &fileState{
			manifest: FileManifest{Path: path},
			records:  make(map[int]core.ExtractionRecord),
		}
		a.files[path] = fs
	}
	return fs
}

func precedes(a, b core.ExtractionRecord) bool {
	if c := strings.Compare(a.RawText, b.RawText); c != 0 {
		return c < 0
	}
	return a.Overview < b.Overview
}

// Document builds the knowledge document from everything added so far.
// RunID, GeneratedAt and Project are left for the caller; the summary only
// carries structural counts.
func (a *Aggregator) Document() *core.KnowledgeDocument {
	a.mu.Lock()
	defer a.mu.Unlock()

	paths := make([]string, 0, len(a.files))
	for path := range a.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	doc := &core.KnowledgeDocument{Files: make([]core.FileSummary, 0, len(paths))}
	for _, path := range paths {
		fs := a.files[path]
		summary, ok := summarize(fs)
		if !ok {
			continue
		}
		doc.Files = append(doc.Files, summary)

		doc.Summary.TotalFiles++
		doc.Summary.TotalChunks += summary.TotalChunks
		doc.Summary.SucceededChunks += len(summary.Records)
		doc.Summary.FailedChunks += len(summary.MissingChunks)
		if summary.Status == core.FileStatusPartial {
			doc.Summary.FailedFiles++
		}
	}
	return doc
}

func summarize(fs *fileState) (core.FileSummary, bool) {
	indices := make([]int, 0, len(fs.records))
	for idx := range fs.records {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	total := fs.manifest.TotalChunks
	if n := len(indices); n > 0 && indices[n-1]+1 > total {
		// Unknown file, or records beyond what the manifest announced
		total = indices[n-1] + 1
	}
	if total == 0 {
		return core.FileSummary{}, false
	}

	language := fs.manifest.Language
	if language == "" {
		language = core.LanguageFromPath(fs.manifest.Path)
	}

	summary := core.FileSummary{
		Path:        fs.manifest.Path,
		Language:    language,
		Status:      core.FileStatusComplete,
		TotalChunks: total,
		Records:     make([]core.ChunkKnowledge, 0, len(indices)),
		Methods:     []core.Method{},
	}

	seen := make(map[[2]string]struct{})
	next := 0
	for _, idx := range indices {
		for ; next < idx; next++ {
			summary.MissingChunks = append(summary.MissingChunks, next)
		}
		next = idx + 1

		r := fs.records[idx]
		summary.Records = append(summary.Records, knowledgeOf(r))
		for _, m := range r.Methods {
			key := [2]string{m.Name, m.Signature}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			summary.Methods = append(summary.Methods, m)
		}
	}
	for ; next < total; next++ {
		summary.MissingChunks = append(summary.MissingChunks, next)
	}

	if len(summary.MissingChunks) > 0 {
		summary.Status = core.FileStatusPartial
	}
	return summary, true
}

// knowledgeOf copies r so the document never shares slices with the input.
func knowledgeOf(r core.ExtractionRecord) core.ChunkKnowledge {
	fields := r.RecordFields
	fields.Methods = slices.Clone(r.Methods)
	if fields.Methods == nil {
		fields.Methods = []core.Method{}
	}
	k := core.ChunkKnowledge{
		Index:        r.Index(),
		RecordFields: fields,
		RawText:      r.RawText,
	}
	if r.Fingerprint != 0 {
		k.Fingerprint = r.Fingerprint.String()
	}
	return k
}
