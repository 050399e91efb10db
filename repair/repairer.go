package repair

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/poiesic/codemine/core"
)

// Repairer cleans, parses and validates model output against one schema.
// It is safe for concurrent use.
type Repairer struct {
	rules  []Rule
	schema *jsonschema.Resolved
	logger *slog.Logger
}

// Option configures a Repairer.
type Option func(*Repairer)

// WithRules replaces the rule chain.
func WithRules(rules []Rule) Option {
	return func(r *Repairer) {
		r.rules = rules
	}
}

// WithLogger sets the logger for the repairer.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repairer) {
		r.logger = logger
	}
}

// New creates a Repairer validating against schema. An empty schema
// disables validation.
func New(schema string, opts ...Option) (*Repairer, error) {
	r := &Repairer{
		rules:  DefaultRules,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "repair")

	if schema != "" {
		resolved, err := CompileSchema(schema)
		if err != nil {
			return nil, err
		}
		r.schema = resolved
	}
	return r, nil
}

// MustNew is like New but panics on an invalid schema. For package-level
// repairers built from constant schemas.
func MustNew(schema string, opts ...Option) *Repairer {
	r, err := New(schema, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRecordRepairer returns a Repairer for chunk extraction responses.
func NewRecordRepairer(opts ...Option) *Repairer {
	return MustNew(RecordSchema, opts...)
}

// NewProjectRepairer returns a Repairer for project synthesis responses.
func NewProjectRepairer(opts ...Option) *Repairer {
	return MustNew(ProjectSchema, opts...)
}

// Clean runs the rule chain over raw and returns the result with the names
// of the rules that fired, in order. Text that is already valid JSON is
// returned trimmed, with no rules applied.
func (r *Repairer) Clean(raw string) (string, []string) {
	s := strings.TrimSpace(raw)
	if json.Valid([]byte(s)) {
		return s, nil
	}
	var applied []string
	for _, rule := range r.rules {
		if !rule.Applies(s) {
			continue
		}
		s = rule.Apply(s)
		applied = append(applied, rule.Name)
	}
	return s, applied
}

// Repair cleans raw, parses it strictly and validates it. The result is
// compact JSON with sorted keys.
func (r *Repairer) Repair(raw string) (json.RawMessage, error) {
	cleaned, applied := r.Clean(raw)
	if len(applied) > 0 {
		r.logger.Debug("repaired model output", "rules", applied)
	}

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, &Error{Kind: ErrUnparseable, Cleaned: cleaned, Applied: applied, Err: err}
	}

	if r.schema != nil {
		if err := r.schema.Validate(value); err != nil {
			return nil, &Error{Kind: ErrSchemaInvalid, Cleaned: cleaned, Applied: applied, Err: err}
		}
	}

	out, err := canonical(value)
	if err != nil {
		return nil, &Error{Kind: ErrUnparseable, Cleaned: cleaned, Applied: applied, Err: err}
	}
	return out, nil
}

// RepairInto repairs raw and decodes the result into v.
func (r *Repairer) RepairInto(raw string, v any) (json.RawMessage, error) {
	out, err := r.Repair(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(out, v); err != nil {
		cleaned, applied := r.Clean(raw)
		return nil, &Error{Kind: ErrSchemaInvalid, Cleaned: cleaned, Applied: applied, Err: err}
	}
	return out, nil
}

func canonical(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

var recordRepairer = NewRecordRepairer()

type wireRecord struct {
	Overview   string          `json:"overview"`
	Methods    []core.Method   `json:"methods"`
	Complexity string          `json:"complexity"`
	Notes      json.RawMessage `json:"notes"`
}

// DecodeRecord repairs a chunk extraction response and converts it to
// record fields. Notes given as an array are joined with newlines.
func DecodeRecord(raw string) (core.RecordFields, error) {
	return decodeRecord(recordRepairer, raw)
}

// DecodeRecord repairs raw with r's rules and converts it to record fields.
// r must validate against RecordSchema.
func (r *Repairer) DecodeRecord(raw string) (core.RecordFields, error) {
	return decodeRecord(r, raw)
}

func decodeRecord(r *Repairer, raw string) (core.RecordFields, error) {
	var w wireRecord
	if _, err := r.RepairInto(raw, &w); err != nil {
		return core.RecordFields{}, err
	}

	fields := core.RecordFields{
		Overview:   w.Overview,
		Methods:    w.Methods,
		Complexity: w.Complexity,
	}
	if fields.Methods == nil {
		fields.Methods = []core.Method{}
	}

	if len(w.Notes) > 0 && string(w.Notes) != "null" {
		var note string
		if err := json.Unmarshal(w.Notes, &note); err == nil {
			fields.Notes = note
		} else {
			var notes []string
			if err := json.Unmarshal(w.Notes, &notes); err != nil {
				return core.RecordFields{}, &Error{Kind: ErrSchemaInvalid, Err: fmt.Errorf("notes: %w", err)}
			}
			fields.Notes = strings.Join(notes, "\n")
		}
	}
	return fields, nil
}

// DecodeProject repairs a project synthesis response.
func DecodeProject(r *Repairer, raw string) (*core.ProjectInfo, error) {
	var info core.ProjectInfo
	if _, err := r.RepairInto(raw, &info); err != nil {
		return nil, err
	}
	if info.MainFeatures == nil {
		info.MainFeatures = []string{}
	}
	return &info, nil
}
