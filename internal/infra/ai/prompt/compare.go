package prompt

import (
	"fmt"
	"strings"
)

// Document is one input document handed to the prompt builder.
type Document struct {
	Name string
	Text string
}

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior commercial real-estate procurement analyst. You must produce one valid JSON object only (no markdown, no commentary) that evaluates commercial proposals against a technical specification. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- overall_score is an integer 0-100 reflecting how well the proposals satisfy the specification.
- Each section score is an integer 0-100.
- risks and missing_requirements are arrays of short strings; keep items concise.
- recommendation is one short paragraph.

Schema (example with empty values):
{
  "overall_score": 0,
  "sections": [
    {"name": "<string>", "score": 0, "summary": "<string>"}
  ],
  "risks": ["<string>"],
  "missing_requirements": ["<string>"],
  "recommendation": "<string>"
}`
}

// GetUserPrompt assembles the comparison prompt from the extracted
// specification text and one or more proposals.
func GetUserPrompt(specName, specText string, proposals []Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate the proposals below against the technical specification and respond with the JSON per schema.\n\n")
	fmt.Fprintf(&b, "TECHNICAL SPECIFICATION (%s):\n%s\n", specName, specText)
	for i, p := range proposals {
		fmt.Fprintf(&b, "\nPROPOSAL %d (%s):\n%s\n", i+1, p.Name, p.Text)
	}
	return b.String()
}
