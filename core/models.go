package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String returns the ID as 16 hex digits.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// SourceFile is a single file handed to the pipeline by the file source.
// It is never modified once read.
type SourceFile struct {
	Path     string
	Language Language
	Text     string
}

// ChunkRef identifies a chunk by its parent file and sequence index.
type ChunkRef struct {
	File  string `json:"file"`
	Index int    `json:"chunk_index"`
}

// String returns "file#index".
func (r ChunkRef) String() string {
	return r.File + "#" + strconv.Itoa(r.Index)
}

// ParseChunkRef parses the form produced by ChunkRef.String.
func ParseChunkRef(s string) (ChunkRef, error) {
	i := strings.LastIndexByte(s, '#')
	if i <= 0 {
		return ChunkRef{}, fmt.Errorf("invalid chunk reference %q: want file#index", s)
	}
	idx, err := strconv.Atoi(s[i+1:])
	if err != nil || idx < 0 {
		return ChunkRef{}, fmt.Errorf("invalid chunk index in %q", s)
	}
	return ChunkRef{File: s[:i], Index: idx}, nil
}

// Chunk is a bounded slice of a source file's text.
// Start and End are character offsets into the parent file, End exclusive.
type Chunk struct {
	File     string
	Language Language
	Index    int
	Text     string
	Start    int
	End      int
}

// Ref returns the chunk's identity.
func (c Chunk) Ref() ChunkRef {
	return ChunkRef{File: c.File, Index: c.Index}
}

// ID returns a content fingerprint of the chunk, stable across runs. It
// changes when the file path, the index or the text changes.
func (c Chunk) ID() ID {
	return IDFromContent(c.Ref().String() + "\x00" + c.Text)
}

// Outcome classifies a single model attempt or a repair failure.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeRateLimited
	OutcomeTransient
	OutcomeFatal
	OutcomeCanceled
	OutcomeUnparseable
	OutcomeSchemaInvalid
)

var outcomeNames = map[Outcome]string{
	OutcomeSuccess:       "success",
	OutcomeRateLimited:   "rate_limited",
	OutcomeTransient:     "transient_error",
	OutcomeFatal:         "fatal_error",
	OutcomeCanceled:      "canceled",
	OutcomeUnparseable:   "unparseable",
	OutcomeSchemaInvalid: "schema_invalid",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Retryable reports whether an attempt with this outcome may be retried.
func (o Outcome) Retryable() bool {
	return o == OutcomeRateLimited || o == OutcomeTransient
}

// ExtractionAttempt is one call to the model for one chunk.
type ExtractionAttempt struct {
	Chunk       ChunkRef
	Fingerprint ID // Chunk.ID of the input, 0 when the input is not a chunk
	Number      int // starts at 1
	Outcome     Outcome
	RawText     string // set on success
	Err         error
	Timestamp   time.Time
}

// Method describes a function or method found in a chunk.
type Method struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Description string `json:"description"`
}

// RecordFields are the structured fields the model returns for one chunk.
type RecordFields struct {
	Overview   string   `json:"overview"`
	Methods    []Method `json:"methods"`
	Complexity string   `json:"complexity"`
	Notes      string   `json:"notes,omitempty"`
}

// ExtractionRecord is the validated result of extracting one chunk.
type ExtractionRecord struct {
	Chunk       ChunkRef `json:"-"`
	Fingerprint ID       `json:"-"`
	RecordFields
	RawText string `json:"raw_model_text,omitempty"`
}

// Index returns the chunk index the record was extracted from.
func (r *ExtractionRecord) Index() int {
	return r.Chunk.Index
}

// FileStatus marks whether every chunk of a file produced a record.
type FileStatus string

const (
	FileStatusComplete FileStatus = "complete"
	FileStatusPartial  FileStatus = "partial"
)

// ChunkKnowledge is one record as it appears inside a file summary.
type ChunkKnowledge struct {
	Index       int    `json:"chunk_index"`
	Fingerprint string `json:"fingerprint,omitempty"`
	RecordFields
	RawText string `json:"raw_model_text,omitempty"`
}

// FileSummary aggregates the records of one file in chunk order.
type FileSummary struct {
	Path          string           `json:"path"`
	Language      Language         `json:"language"`
	Status        FileStatus       `json:"status"`
	TotalChunks   int              `json:"total_chunks"`
	MissingChunks []int            `json:"missing_chunks,omitempty"`
	Records       []ChunkKnowledge `json:"records"`
	Methods       []Method         `json:"methods"`
}

// ProjectInfo is the optional project-level synthesis built from the README.
type ProjectInfo struct {
	ReadmeSummary string   `json:"readme_summary"`
	MainFeatures  []string `json:"main_features"`
	Usage         string   `json:"usage"`
}

// RunSummary counts what happened during one pipeline run.
type RunSummary struct {
	TotalFiles      int `json:"total_files"`
	FailedFiles     int `json:"failed_files"`
	TotalChunks     int `json:"total_chunks"`
	SucceededChunks int `json:"succeeded_chunks"`
	FailedChunks    int `json:"failed_chunks"`
	GaveUp          int `json:"gave_up"`
	Fatal           int `json:"fatal"`
	Unparseable     int `json:"unparseable"`
	SchemaInvalid   int `json:"schema_invalid"`
	Canceled        int `json:"canceled"`
	Sweeps          int `json:"sweeps"`
}

// KnowledgeDocument is the single artifact produced by a run.
type KnowledgeDocument struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Project     *ProjectInfo  `json:"project_info,omitempty"`
	Files       []FileSummary `json:"files"`
	Summary     RunSummary    `json:"summary"`
}

// File returns the summary for path, or nil.
func (d *KnowledgeDocument) File(path string) *FileSummary {
	for i := range d.Files {
		if d.Files[i].Path == path {
			return &d.Files[i]
		}
	}
	return nil
}

// AuditEntry is one line of the append-only audit log.
type AuditEntry struct {
	Id          ID
	RunID       string
	Chunk       ChunkRef
	Fingerprint ID
	Attempt     int
	Outcome     Outcome
	Text        string // raw model text, or cleaned text for repair failures
	Error       string
	Timestamp   time.Time
}

// AuditEntryFromAttempt converts an attempt into an audit entry for runID.
func AuditEntryFromAttempt(runID string, a ExtractionAttempt) *AuditEntry {
	entry := &AuditEntry{
		RunID:       runID,
		Chunk:       a.Chunk,
		Fingerprint: a.Fingerprint,
		Attempt:     a.Number,
		Outcome:     a.Outcome,
		Text:        a.RawText,
		Timestamp:   a.Timestamp,
	}
	if a.Err != nil {
		entry.Error = a.Err.Error()
	}
	return entry
}
