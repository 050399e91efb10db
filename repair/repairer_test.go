package repair

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validRecord     = `{"overview":"o","methods":[{"name":"f","signature":"f()","description":"d"}],"complexity":"low"}`
	canonicalRecord = `{"complexity":"low","methods":[{"description":"d","name":"f","signature":"f()"}],"overview":"o"}`
)

func TestRepair_Fixes(t *testing.T) {
	r := NewRecordRepairer()

	tests := []struct {
		name  string
		raw   string
		want  string
		rules []string
	}{
		{
			name: "already valid",
			raw:  validRecord,
			want: canonicalRecord,
		},
		{
			name:  "code fence",
			raw:   "```json\n" + validRecord + "\n```",
			want:  canonicalRecord,
			rules: []string{"strip-code-fences"},
		},
		{
			name:  "surrounding prose",
			raw:   "Here is the analysis:\n" + validRecord + "\nHope this helps!",
			want:  canonicalRecord,
			rules: []string{"isolate-object"},
		},
		{
			name:  "trailing commas",
			raw:   `{"overview":"o","methods":[{"name":"f","signature":"f()","description":"d",},],"complexity":"low",}`,
			want:  canonicalRecord,
			rules: []string{"remove-trailing-commas"},
		},
		{
			name:  "smart quotes",
			raw:   `{“overview”: “o”, “methods”: [], “complexity”: “low”}`,
			want:  `{"complexity":"low","methods":[],"overview":"o"}`,
			rules: []string{"normalize-smart-quotes"},
		},
		{
			name:  "missing opening quotes on keys",
			raw:   `{"overview":"o", methods":[], complexity":"low"}`,
			want:  `{"complexity":"low","methods":[],"overview":"o"}`,
			rules: []string{"quote-bare-keys"},
		},
		{
			name:  "missing final brace",
			raw:   `{"overview":"o","methods":[],"complexity":"low"`,
			want:  `{"complexity":"low","methods":[],"overview":"o"}`,
			rules: []string{"balance-braces"},
		},
		{
			name: "everything at once",
			raw:  "Sure! ```json\n{overview: “o”, \"methods\": [], \"complexity\": \"low\",\n```",
			want: `{"complexity":"low","methods":[],"overview":"o"}`,
			rules: []string{
				"strip-code-fences",
				"normalize-smart-quotes",
				"quote-bare-keys",
				"balance-braces",
				"remove-trailing-commas",
			},
		},
		{
			name:  "empty object mentioned in prose",
			raw:   "The body {} is empty. JSON:\n" + validRecord,
			want:  canonicalRecord,
			rules: []string{"isolate-object"},
		},
		{
			name: "html characters not escaped",
			raw:  `{"overview":"a < b && c","methods":[],"complexity":"low"}`,
			want: `{"complexity":"low","methods":[],"overview":"a < b && c"}`,
		},
		{
			name: "typographic quotes in content survive",
			raw:  `{"overview":"says “hi”","methods":[],"complexity":"low"}`,
			want: `{"complexity":"low","methods":[],"overview":"says “hi”"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, applied := r.Clean(tt.raw)
			assert.Equal(t, tt.rules, applied)

			out, err := r.Repair(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))

			again, err := r.Repair(string(out))
			require.NoError(t, err)
			assert.Equal(t, string(out), string(again), "repair is idempotent")
		})
	}
}

func TestRepair_BackticksInStrings(t *testing.T) {
	r := NewRecordRepairer()

	const record = `{"overview":"Strips ` + "```json" + ` fences from replies","methods":[{"name":"strip","signature":"strip(s string) string","description":"removes ` + "```" + ` markers"}],"complexity":"simple"}`
	const indented = "{\n  \"overview\": \"Strips ```json fences\",\n  \"methods\": [],\n  \"complexity\": \"```\"\n}"

	t.Run("valid reply is left alone", func(t *testing.T) {
		cleaned, applied := r.Clean(record)
		assert.Empty(t, applied)
		assert.Equal(t, record, cleaned)

		fields, err := r.DecodeRecord(record)
		require.NoError(t, err)
		assert.Equal(t, "Strips ```json fences from replies", fields.Overview)
		require.Len(t, fields.Methods, 1)
		assert.Equal(t, "removes ``` markers", fields.Methods[0].Description)
	})

	t.Run("indented reply is left alone", func(t *testing.T) {
		fields, err := r.DecodeRecord(indented)
		require.NoError(t, err)
		assert.Equal(t, "Strips ```json fences", fields.Overview)
		assert.Equal(t, "```", fields.Complexity)
	})

	t.Run("fenced reply keeps the backticks in its strings", func(t *testing.T) {
		fields, err := r.DecodeRecord("```json\n" + record + "\n```")
		require.NoError(t, err)
		assert.Equal(t, "Strips ```json fences from replies", fields.Overview)
	})

	t.Run("damaged reply keeps the backticks in its strings", func(t *testing.T) {
		raw := strings.TrimSuffix(record, "}") + ",}"
		fields, err := r.DecodeRecord(raw)
		require.NoError(t, err)
		assert.Equal(t, "removes ``` markers", fields.Methods[0].Description)
	})
}

func TestRepair_Unparseable(t *testing.T) {
	r := NewRecordRepairer()

	tests := []struct {
		name    string
		raw     string
		cleaned string
	}{
		{"plain prose", "I cannot help with that.", "I cannot help with that."},
		{"two closers missing", `{"overview":"o","methods":[{"name":"f"`, `{"overview":"o","methods":[{"name":"f"`},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Repair(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnparseable)
			assert.NotErrorIs(t, err, ErrSchemaInvalid)

			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.cleaned, rerr.Cleaned)
		})
	}
}

func TestRepair_SchemaInvalid(t *testing.T) {
	r := NewRecordRepairer()

	tests := []struct {
		name string
		raw  string
	}{
		{"missing methods", `{"overview":"o","complexity":"low"}`},
		{"missing overview", `{"methods":[],"complexity":"low"}`},
		{"method missing signature", `{"overview":"o","methods":[{"name":"f","description":"d"}],"complexity":"low"}`},
		{"overview not a string", `{"overview":3,"methods":[],"complexity":"low"}`},
		{"methods not an array", `{"overview":"o","methods":{},"complexity":"low"}`},
		{"notes wrong type", `{"overview":"o","methods":[],"complexity":"low","notes":7}`},
		{"top level array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Repair(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaInvalid)
		})
	}
}

func TestRepair_NoSchema(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	out, err := r.Repair(`{"b":1,"a":[2,],}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[2],"b":1}`, string(out))
}

func TestNew_InvalidSchema(t *testing.T) {
	_, err := New(`{"type":`)
	require.Error(t, err)
}

func TestWithRules(t *testing.T) {
	r, err := New("", WithRules(nil))
	require.NoError(t, err)

	_, err = r.Repair("```json\n{}\n```")
	assert.ErrorIs(t, err, ErrUnparseable, "no rules means no fence stripping")
}

func TestDecodeRecord(t *testing.T) {
	t.Run("fields", func(t *testing.T) {
		fields, err := DecodeRecord(validRecord)
		require.NoError(t, err)
		assert.Equal(t, "o", fields.Overview)
		assert.Equal(t, "low", fields.Complexity)
		require.Len(t, fields.Methods, 1)
		assert.Equal(t, "f()", fields.Methods[0].Signature)
		assert.Empty(t, fields.Notes)
	})

	t.Run("notes as string", func(t *testing.T) {
		fields, err := DecodeRecord(`{"overview":"o","methods":[],"complexity":"c","notes":"n"}`)
		require.NoError(t, err)
		assert.Equal(t, "n", fields.Notes)
		assert.NotNil(t, fields.Methods)
	})

	t.Run("notes as array", func(t *testing.T) {
		fields, err := DecodeRecord(`{"overview":"o","methods":[],"complexity":"c","notes":["a","b"]}`)
		require.NoError(t, err)
		assert.Equal(t, "a\nb", fields.Notes)
	})

	t.Run("notes null", func(t *testing.T) {
		fields, err := DecodeRecord(`{"overview":"o","methods":[],"complexity":"c","notes":null}`)
		require.NoError(t, err)
		assert.Empty(t, fields.Notes)
	})

	t.Run("schema failure", func(t *testing.T) {
		_, err := DecodeRecord(`{"overview":"o"}`)
		assert.ErrorIs(t, err, ErrSchemaInvalid)
	})
}

func TestDecodeProject(t *testing.T) {
	r := NewProjectRepairer()

	info, err := DecodeProject(r, "```json\n{\"readme_summary\":\"s\",\"main_features\":[\"a\",\"b\",],\"usage\":\"u\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "s", info.ReadmeSummary)
	assert.Equal(t, []string{"a", "b"}, info.MainFeatures)
	assert.Equal(t, "u", info.Usage)

	_, err = DecodeProject(r, `{"readme_summary":"s"}`)
	assert.ErrorIs(t, err, ErrSchemaInvalid)
}

func TestRepairer_Concurrent(t *testing.T) {
	r := NewRecordRepairer()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Repair(validRecord)
			assert.NoError(t, err)
			assert.Equal(t, canonicalRecord, string(out))
		}()
	}
	wg.Wait()
}
