package aggregate

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/codemine/core"
)

func record(file string, idx int, overview string, methods ...core.Method) core.ExtractionRecord {
	return core.ExtractionRecord{
		Chunk: core.ChunkRef{File: file, Index: idx},
		RecordFields: core.RecordFields{
			Overview:   overview,
			Methods:    methods,
			Complexity: "simple",
		},
		RawText: "raw:" + overview,
	}
}

func TestAggregate_TwoFileScenario(t *testing.T) {
	manifest := []FileManifest{
		{Path: "b.py", Language: core.LanguagePython, TotalChunks: 2},
		{Path: "a.py", Language: core.LanguagePython, TotalChunks: 1},
	}
	records := []core.ExtractionRecord{
		record("b.py", 0, "b0"),
		record("a.py", 0, "a0"),
	}

	doc := Aggregate(manifest, records)
	require.NoError(t, core.ValidateDocument(doc))
	require.Len(t, doc.Files, 2)

	a := doc.File("a.py")
	require.NotNil(t, a)
	assert.Equal(t, core.FileStatusComplete, a.Status)
	assert.Empty(t, a.MissingChunks)

	b := doc.File("b.py")
	require.NotNil(t, b)
	assert.Equal(t, core.FileStatusPartial, b.Status)
	assert.Equal(t, []int{1}, b.MissingChunks)

	assert.Equal(t, "a.py", doc.Files[0].Path)
	assert.Equal(t, 3, doc.Summary.TotalChunks)
	assert.Equal(t, 2, doc.Summary.SucceededChunks)
	assert.Equal(t, 1, doc.Summary.FailedChunks)
	assert.Equal(t, 1, doc.Summary.FailedFiles)
	assert.Equal(t, 2, doc.Summary.TotalFiles)
}

func TestAggregate_GapInMiddle(t *testing.T) {
	doc := Aggregate(
		[]FileManifest{{Path: "f.go", TotalChunks: 3}},
		[]core.ExtractionRecord{record("f.go", 2, "two"), record("f.go", 0, "zero")},
	)

	f := doc.File("f.go")
	require.NotNil(t, f)
	assert.Equal(t, core.FileStatusPartial, f.Status)
	assert.Equal(t, []int{1}, f.MissingChunks)
	require.Len(t, f.Records, 2)
	assert.Equal(t, 0, f.Records[0].Index)
	assert.Equal(t, "zero", f.Records[0].Overview)
	assert.Equal(t, 2, f.Records[1].Index)
	assert.Equal(t, core.LanguageGo, f.Language, "language inferred from path")
}

func TestAggregate_MissingFinalChunk(t *testing.T) {
	doc := Aggregate(
		[]FileManifest{{Path: "f.go", TotalChunks: 2}},
		[]core.ExtractionRecord{record("f.go", 0, "zero")},
	)
	assert.Equal(t, []int{1}, doc.File("f.go").MissingChunks)
}

func TestAggregate_FileWithNoRecords(t *testing.T) {
	doc := Aggregate([]FileManifest{{Path: "f.go", TotalChunks: 2}}, nil)

	f := doc.File("f.go")
	require.NotNil(t, f, "every chunked file appears")
	assert.Equal(t, core.FileStatusPartial, f.Status)
	assert.Equal(t, []int{0, 1}, f.MissingChunks)
	assert.NotNil(t, f.Records)
	assert.NotNil(t, f.Methods)
}

func TestAggregate_EmptyFileOmitted(t *testing.T) {
	doc := Aggregate([]FileManifest{{Path: "empty.go", TotalChunks: 0}}, nil)
	assert.Empty(t, doc.Files)
	assert.Equal(t, 0, doc.Summary.TotalFiles)
}

func TestAggregate_UnknownFileInfersTotal(t *testing.T) {
	doc := Aggregate(nil, []core.ExtractionRecord{record("x.rs", 2, "two")})

	f := doc.File("x.rs")
	require.NotNil(t, f)
	assert.Equal(t, 3, f.TotalChunks)
	assert.Equal(t, []int{0, 1}, f.MissingChunks)
	assert.Equal(t, core.LanguageRust, f.Language)
}

func TestAggregate_DeduplicatesMethods(t *testing.T) {
	first := core.Method{Name: "Run", Signature: "func Run() error", Description: "first"}
	again := core.Method{Name: "Run", Signature: "func Run() error", Description: "second"}
	overload := core.Method{Name: "Run", Signature: "func Run(ctx context.Context) error", Description: "ctx"}
	other := core.Method{Name: "Stop", Signature: "func Stop()", Description: "stop"}

	doc := Aggregate(
		[]FileManifest{{Path: "f.go", TotalChunks: 2}},
		[]core.ExtractionRecord{
			record("f.go", 1, "one", again, other),
			record("f.go", 0, "zero", first, overload),
		},
	)

	f := doc.File("f.go")
	assert.Equal(t, []core.Method{first, overload, other}, f.Methods, "first occurrence in chunk order wins")
	assert.Len(t, f.Records[1].Methods, 2, "records keep their own methods")
}

func TestAggregate_DuplicateChunkIsDeterministic(t *testing.T) {
	x := record("f.go", 0, "x")
	y := record("f.go", 0, "y")
	manifest := []FileManifest{{Path: "f.go", TotalChunks: 1}}

	d1 := Aggregate(manifest, []core.ExtractionRecord{x, y})
	d2 := Aggregate(manifest, []core.ExtractionRecord{y, x})
	assert.Equal(t, d1, d2)
	assert.Equal(t, "x", d1.File("f.go").Records[0].Overview)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	manifest := []FileManifest{
		{Path: "a.go", TotalChunks: 3},
		{Path: "b.go", TotalChunks: 4},
		{Path: "c.go", TotalChunks: 1},
	}
	var records []core.ExtractionRecord
	for _, m := range manifest {
		for i := 0; i < m.TotalChunks; i++ {
			if m.Path == "b.go" && i == 2 {
				continue
			}
			records = append(records, record(m.Path, i, m.Path+string(rune('0'+i)),
				core.Method{Name: "M", Signature: "func M()", Description: m.Path}))
		}
	}

	want := Aggregate(manifest, records)
	r := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		shuffled := append([]core.ExtractionRecord(nil), records...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		mshuf := append([]FileManifest(nil), manifest...)
		r.Shuffle(len(mshuf), func(i, j int) { mshuf[i], mshuf[j] = mshuf[j], mshuf[i] })

		require.Equal(t, want, Aggregate(mshuf, shuffled))
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	methods := []core.Method{{Name: "A", Signature: "a()", Description: "d"}}
	records := []core.ExtractionRecord{record("f.go", 0, "zero", methods...)}

	doc := Aggregate([]FileManifest{{Path: "f.go", TotalChunks: 1}}, records)
	doc.File("f.go").Records[0].Methods[0].Name = "changed"
	doc.File("f.go").Methods[0].Name = "changed"

	assert.Equal(t, "A", records[0].Methods[0].Name)
	assert.Equal(t, "A", methods[0].Name)
}

func TestAggregate_CarriesFingerprint(t *testing.T) {
	withID := record("a.py", 0, "first")
	withID.Fingerprint = core.ID(0xabc)
	withoutID := record("a.py", 1, "second")

	doc := Aggregate(
		[]FileManifest{{Path: "a.py", Language: core.LanguagePython, TotalChunks: 2}},
		[]core.ExtractionRecord{withoutID, withID},
	)

	f := doc.File("a.py")
	require.NotNil(t, f)
	require.Len(t, f.Records, 2)
	assert.Equal(t, "0000000000000abc", f.Records[0].Fingerprint)
	assert.Empty(t, f.Records[1].Fingerprint)
}

func TestAggregator_ConcurrentAdd(t *testing.T) {
	a := New()
	a.Expect(FileManifest{Path: "f.go", TotalChunks: 100})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			a.Add(record("f.go", idx, "r"))
		}(i)
	}
	wg.Wait()

	doc := a.Document()
	f := doc.File("f.go")
	assert.Equal(t, core.FileStatusComplete, f.Status)
	assert.Len(t, f.Records, 100)
	for i, r := range f.Records {
		assert.Equal(t, i, r.Index)
	}
}
