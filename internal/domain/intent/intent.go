// Package intent enumerates question classifications.
package intent

// Intent names the tool categories a question needs.
type Intent string

// Classification constants.
const (
	// Structured means the question is answerable from the stats store alone.
	Structured Intent = "structured"
	// Unstructured means the question needs commentary retrieval alone.
	Unstructured Intent = "unstructured"
	// Both means the question asks for numbers and an explanation.
	Both Intent = "both"
)

// IsValid checks if the intent is one of the supported values.
func (i Intent) IsValid() bool {
	return i == Structured || i == Unstructured || i == Both
}

// NeedsStats reports whether intent implies the structured-data tool.
func (i Intent) NeedsStats() bool {
	return i == Structured || i == Both
}

// NeedsKnowledge reports whether intent implies commentary retrieval.
func (i Intent) NeedsKnowledge() bool {
	return i == Unstructured || i == Both
}
