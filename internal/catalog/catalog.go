// Package catalog holds the static clarifier sets and note templates used
// whenever a confident model result is not available.
package catalog

import (
	"slices"
	"strings"
)

// Scenario selects a clarifier set.
type Scenario string

const (
	ScenarioTechnical    Scenario = "technical"
	ScenarioArchitecture Scenario = "architecture"
	ScenarioGeneral      Scenario = "general"
)

var (
	technical = []string{
		"What specific technical implementation details need clarification?",
		"What error handling strategies should be defined?",
		"What performance requirements should be specified?",
		"What security measures need to be implemented?",
		"What testing and quality assurance approaches are needed?",
	}
	architecture = []string{
		"What specific technical stack and architecture should be used?",
		"What are the detailed functional requirements for each feature?",
		"What performance and scalability requirements need to be defined?",
		"What security measures should be implemented?",
		"What testing strategies should be employed?",
	}
	general = []string{
		"What specific technical implementation details need clarification?",
		"What error handling strategies should be defined?",
		"What performance requirements should be specified?",
		"What security measures need to be implemented?",
		"What testing and quality assurance approaches are needed?",
	}
)

// Note templates appended to the original specification.
const (
	DefaultNote = "\n\n## Enhancement Note\nSpecification reviewed and validated with technical improvements."

	FallbackNote = "\n\n## AI Enhancement Note\n\n" +
		"The specification has been reviewed and enhanced with technical details. Consider the following improvements:\n\n" +
		"### Technical Implementation\n" +
		"- Add specific technology stack details\n" +
		"- Include architecture patterns and design decisions\n" +
		"- Specify data flow and state management approaches\n\n" +
		"### Error Handling & Resilience\n" +
		"- Define comprehensive error handling strategies\n" +
		"- Include retry mechanisms and circuit breakers\n" +
		"- Specify logging and monitoring requirements\n\n" +
		"### Performance & Security\n" +
		"- Establish performance benchmarks and SLAs\n" +
		"- Define security measures and compliance requirements\n" +
		"- Include scalability considerations"
)

// Clarifier count bounds. Only the upper bound is enforced by truncation.
const (
	MaxClarifiers = 6
	MinClarifiers = 1
)

// Model defaults used when configuration leaves them unset.
const (
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o"
	DefaultTemperature = float32(0.3)
	DefaultMaxTokens   = 3000
)

// DefaultModelFor returns the model used when none is configured for the
// provider. Groq, fake and unknown providers get DefaultModel.
func DefaultModelFor(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		return DefaultGeminiModel
	case "openai":
		return DefaultOpenAIModel
	default:
		return DefaultModel
	}
}

// Clarifiers returns a fresh copy of the set for the scenario. Unknown
// scenarios get the general set.
func Clarifiers(s Scenario) []string {
	switch s {
	case ScenarioTechnical:
		return slices.Clone(technical)
	case ScenarioArchitecture:
		return slices.Clone(architecture)
	default:
		return slices.Clone(general)
	}
}

// Technical returns the technical clarifier set.
func Technical() []string { return Clarifiers(ScenarioTechnical) }

// Architecture returns the architecture clarifier set used by the fallback.
func Architecture() []string { return Clarifiers(ScenarioArchitecture) }

// General returns the clarifier set substituted by the normalizer.
func General() []string { return Clarifiers(ScenarioGeneral) }
