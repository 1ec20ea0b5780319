// Package prompt assembles the instruction text sent to the model.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

const preamble = `You are a senior software architect and technical specification expert with 15+ years of experience in modern software development. You specialize in creating clear, actionable technical specifications that bridge the gap between business requirements and implementation details.

Your role is to enhance specifications by adding technical depth while maintaining clarity and actionable guidance.`

var approach = []string{
	"Preserve the original structure and intent",
	"Add specific, actionable technical details",
	"Include concrete examples where helpful",
	"Maintain clear, professional tone",
	"Focus on implementation guidance over theory",
	"Consider scalability and maintainability",
}

const responseFormat = `Reply with exactly one JSON object and nothing else. It must have these exact keys:
- "enhanced_specification": string (the enhanced specification with \n for line breaks)
- "thought_clarifiers": array of 3-5 focused technical questions
Do not wrap the object in markdown code fences. Do not write any prose before or after the object.`

var formattingRules = []string{
	"Use double quotes for all strings",
	`Escape quotes inside strings with \"`,
	`Use \n for line breaks`,
	"No trailing commas",
	"No markdown or code blocks",
}

// Example is a complete conforming response used to bias the model.
const Example = `{
  "enhanced_specification": "# Enhanced Title\n\n## Technical Section\nImplementation details with \"specific examples\" and \nproper line breaks.",
  "thought_clarifiers": [
    "What specific database indexing strategy should be implemented for optimal query performance?",
    "How should the system handle concurrent user sessions and race conditions?",
    "What are the specific error codes and recovery mechanisms for each failure scenario?"
  ]
}`

var tone = []string{
	"Professional but accessible",
	"Technical but not overly complex",
	"Actionable and specific",
	"Focus on practical implementation",
	"Include specific technologies, patterns, and approaches",
}

// Compose renders the full instruction. The specification is embedded
// verbatim; clarifier answers are rendered in question order so identical
// inputs always give identical prompts.
func Compose(specification string, responses map[string]string, requirements []string) string {
	var buf bytes.Buffer
	buf.WriteString(preamble)
	buf.WriteString("\n\n")

	buf.WriteString("SPECIFICATION TO ENHANCE:\n")
	buf.WriteString(specification)
	buf.WriteString("\n\n")

	writeSection(&buf, "ADDITIONAL CONTEXT FROM CLARIFIER RESPONSES", formatResponses(responses))
	writeSection(&buf, "ENHANCEMENT FOCUS AREAS", formatBullets(requirements))
	writeSection(&buf, "ENHANCEMENT APPROACH", formatNumbered(approach))
	writeSection(&buf, "RESPONSE FORMAT", responseFormat)
	writeSection(&buf, "JSON FORMATTING RULES", formatBullets(formattingRules))
	writeSection(&buf, "EXAMPLE FORMAT", Example)
	writeSection(&buf, "TONE AND STYLE", formatBullets(tone))

	buf.WriteString("Return the JSON now:")
	return buf.String()
}

func formatResponses(responses map[string]string) string {
	if len(responses) == 0 {
		return ""
	}
	questions := make([]string, 0, len(responses))
	for q := range responses {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", q, responses[q])
	}
	return b.String()
}

func formatBullets(items []string) string {
	var b strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&b, "• %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatNumbered(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString(title)
	buf.WriteString(":\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
