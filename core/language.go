package core

import (
	"path/filepath"
	"strings"
)

// Language is a source language tag derived from a file extension.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageJava       Language = "java"
	LanguageCPP        Language = "cpp"
	LanguageC          Language = "c"
	LanguageCSharp     Language = "csharp"
	LanguageGo         Language = "go"
	LanguageRuby       Language = "ruby"
	LanguagePHP        Language = "php"
	LanguageRust       Language = "rust"
	LanguageScala      Language = "scala"
	LanguageKotlin     Language = "kotlin"
	LanguageSwift      Language = "swift"
	LanguageObjectiveC Language = "objective-c"
	LanguageCHeader    Language = "c-header"
	LanguageShell      Language = "shell"
	LanguageBatch      Language = "batch"
	LanguagePerl       Language = "perl"
	LanguageSQL        Language = "sql"
	LanguageUnknown    Language = "unknown"
)

var extensionLanguages = map[string]Language{
	".py":    LanguagePython,
	".js":    LanguageJavaScript,
	".ts":    LanguageTypeScript,
	".java":  LanguageJava,
	".cpp":   LanguageCPP,
	".c":     LanguageC,
	".cs":    LanguageCSharp,
	".go":    LanguageGo,
	".rb":    LanguageRuby,
	".php":   LanguagePHP,
	".rs":    LanguageRust,
	".scala": LanguageScala,
	".kt":    LanguageKotlin,
	".swift": LanguageSwift,
	".m":     LanguageObjectiveC,
	".h":     LanguageCHeader,
	".sh":    LanguageShell,
	".bat":   LanguageBatch,
	".pl":    LanguagePerl,
	".sql":   LanguageSQL,
}

// SourceExtensions lists the file extensions accepted as source code.
var SourceExtensions = []string{
	".py", ".js", ".ts", ".java", ".cpp", ".c", ".cs", ".go", ".rb", ".php",
	".rs", ".scala", ".kt", ".swift", ".m", ".h", ".sh", ".bat", ".pl", ".sql",
}

// LanguageFromPath returns the language for path's extension.
// Matching is case-insensitive. Unrecognized extensions map to LanguageUnknown.
func LanguageFromPath(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}
	return LanguageUnknown
}

// IsSourcePath reports whether path has one of the SourceExtensions.
func IsSourcePath(path string) bool {
	return LanguageFromPath(path) != LanguageUnknown
}
