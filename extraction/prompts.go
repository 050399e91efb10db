package extraction

import (
	"fmt"
	"strings"

	"github.com/poiesic/codemine/ai"
	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/repair"
)

const systemPrompt = `You are an expert software architect and codebase analyst. You document source code for onboarding. You reply with a single JSON object and nothing else.`

// PromptTemplate is filled with the chunk location, the response schema and
// the chunk text, in that order.
const PromptTemplate = `Analyze the following code chunk and extract structured, in-depth knowledge for documentation and onboarding purposes.

%s

Provide a JSON object with the following keys:

- "overview": A concise, high-level summary of the code's purpose and functionality.
- "methods": An array of objects, one per key method or function, each with:
    - "name": The method or function name
    - "signature": The full method or function signature
    - "description": A clear explanation of what it does
- "complexity": A brief assessment of the code's complexity (simple, moderate, complex) and why.
- "notes": Any other noteworthy aspects, such as design patterns, dependencies, or potential issues.

Your output must follow this schema:

%s

IMPORTANT: Do not use trailing commas in arrays or objects. All property names and string values must be in double quotes. Do not add comments or extra text.

Return ONLY a valid JSON object with these keys. Start your response with the opening brace { and end it with the closing brace }. Do not include markdown or code fences.

Code chunk:
%s`

const projectPromptTemplate = `Summarize the following README for onboarding.

Return ONLY a JSON object that follows this schema:

%s

- "readme_summary": What the project is and what problem it solves.
- "main_features": The main features, one short phrase each.
- "usage": How to install and run it.

Do not use trailing commas. Do not add comments, markdown or extra text.

README:
%s`

// BuildPrompt renders the extraction prompt for chunk. total is the number
// of chunks in the chunk's file, or 0 when unknown.
func BuildPrompt(chunk core.Chunk, total int) ai.Request {
	return ai.Request{
		System: systemPrompt,
		Prompt: fmt.Sprintf(PromptTemplate, describeChunk(chunk, total), repair.RecordSchema, chunk.Text),
		JSON:   true,
	}
}

// BuildProjectPrompt renders the project synthesis prompt for a README.
func BuildProjectPrompt(readme string) ai.Request {
	return ai.Request{
		System: systemPrompt,
		Prompt: fmt.Sprintf(projectPromptTemplate, repair.ProjectSchema, readme),
		JSON:   true,
	}
}

func describeChunk(chunk core.Chunk, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s\n", chunk.File)
	if chunk.Language != "" && chunk.Language != core.LanguageUnknown {
		fmt.Fprintf(&sb, "Language: %s\n", chunk.Language)
	}
	if total > 0 {
		fmt.Fprintf(&sb, "Chunk: %d of %d", chunk.Index+1, total)
	} else {
		fmt.Fprintf(&sb, "Chunk: %d", chunk.Index+1)
	}
	return sb.String()
}
