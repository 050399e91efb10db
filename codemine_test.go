package codemine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/codemine/ai"
	"github.com/poiesic/codemine/ai/mock"
	"github.com/poiesic/codemine/core"
)

func TestNewExtractor(t *testing.T) {
	t.Run("persistent audit log", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "audit")
		e, err := NewExtractor(WithAuditDir(dir), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, e)
		defer e.Close()

		assert.NotNil(t, e.AuditRepository())
		assert.NotNil(t, e.backend)
		assert.NotNil(t, e.Provider())
		assert.DirExists(t, dir)
	})

	t.Run("no audit log", func(t *testing.T) {
		e, err := NewExtractor(WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer e.Close()

		assert.Nil(t, e.AuditRepository())
		assert.Nil(t, e.backend)
	})

	t.Run("openai provider from config", func(t *testing.T) {
		e, err := NewExtractor(WithAIConfig(ai.NewConfig(ai.WithModel("gpt-4o-mini"))))
		require.NoError(t, err)
		defer e.Close()
		assert.NotNil(t, e.Provider().Model())
	})

	t.Run("invalid ai config", func(t *testing.T) {
		_, err := NewExtractor(WithInMemoryAudit(), WithAIConfig(ai.NewConfig(ai.WithModel(""))))
		assert.Error(t, err)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to open the audit log at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		e, err := NewExtractor(WithAuditDir(tmpFile), WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, e)
	})
}

func TestExtractor_Close(t *testing.T) {
	e, err := NewExtractor(WithAuditDir(t.TempDir()), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)

	assert.NoError(t, e.Close())
}

func TestExtractor_Extract(t *testing.T) {
	e, err := NewExtractor(WithInMemoryAudit(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer e.Close()

	files := []core.SourceFile{
		{Path: "main.go", Language: core.LanguageGo, Text: "package main\n\nfunc main() {}\n"},
	}
	result, err := e.Extract(context.Background(), files, "")
	require.NoError(t, err)
	require.Len(t, result.Document.Files, 1)
	assert.Equal(t, core.FileStatusComplete, result.Document.Files[0].Status)

	runs, err := e.AuditRepository().Runs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{result.Document.RunID}, runs)
}

func TestExtractor_NewPipeline(t *testing.T) {
	e, err := NewExtractor(WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer e.Close()

	p, err := e.NewPipeline()
	require.NoError(t, err)
	require.NotNil(t, p)
	p.Release()
}
