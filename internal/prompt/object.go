package prompt

import (
	"time"

	"github.com/google/uuid"
)

// DefaultVersion tags objects produced by the current builder.
const DefaultVersion = "1.0"

// Format is the output format a prompt declares.
type Format string

const (
	FormatNone       Format = ""
	FormatJSON       Format = "json"
	FormatMarkdown   Format = "markdown"
	FormatNoMarkdown Format = "no_markdown"
	FormatCode       Format = "code"
)

// Constraints are the declared output rules a prompt must respect.
type Constraints struct {
	MaxLength          int    `json:"max_tokens"`
	Format             Format `json:"format,omitempty"`
	IncludeExamples    bool   `json:"include_examples"`
	IncludeExplanation bool   `json:"include_explanation"`
	RequireMarkdown    bool   `json:"require_markdown,omitempty"`
	ProhibitMarkdown   bool   `json:"prohibit_markdown,omitempty"`
}

// Validation is the validator's verdict on the final template. It travels
// with the object so cached copies report the original result.
type Validation struct {
	Passed    bool     `json:"passed"`
	Warnings  []string `json:"warnings,omitempty"`
	Corrected bool     `json:"corrected"`
	Attempts  int      `json:"attempts"`
}

// Metadata records how a prompt was built.
type Metadata struct {
	Strategy        string     `json:"strategy"`
	Role            string     `json:"role"`
	Complexity      Complexity `json:"complexity"`
	Intent          Intent     `json:"intent"`
	ExampleCount    int        `json:"example_count"`
	Elaborated      bool       `json:"elaborated"`
	RetrievalFailed bool       `json:"retrieval_failed,omitempty"`
	RetrievalError  string     `json:"retrieval_error,omitempty"`

	// Validation is nil until the validator has run.
	Validation *Validation `json:"validation,omitempty"`

	// RefinedCandidate is the debug refiner's accepted fix. The template
	// stays the prompt that asked for it.
	RefinedCandidate string `json:"refined_candidate,omitempty"`

	// Extra holds forward-compatible annotations (mode, token estimate,
	// degradation notes). Fixed fields above never live here.
	Extra map[string]string `json:"extra,omitempty"`
}

// PromptObject is the structured artifact produced by the pipeline. It is
// mutated during construction and refinement and frozen once returned.
type PromptObject struct {
	ID          string      `json:"id"`
	Version     string      `json:"version"`
	Intent      Intent      `json:"intent"`
	Template    string      `json:"template"`
	Metadata    Metadata    `json:"metadata"`
	Constraints Constraints `json:"constraints"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewPromptObject creates an object with a fresh id and timestamps.
func NewPromptObject(intent Intent, template string) *PromptObject {
	now := time.Now().UTC()
	return &PromptObject{
		ID:        uuid.New().String(),
		Version:   DefaultVersion,
		Intent:    intent,
		Template:  template,
		Metadata:  Metadata{Intent: intent, Extra: map[string]string{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetTemplate replaces the template and bumps UpdatedAt.
func (p *PromptObject) SetTemplate(text string) {
	p.Template = text
	p.UpdatedAt = time.Now().UTC()
}

// Annotate sets an extension metadata value.
func (p *PromptObject) Annotate(key, value string) {
	if p.Metadata.Extra == nil {
		p.Metadata.Extra = map[string]string{}
	}
	p.Metadata.Extra[key] = value
}

// Clone returns a deep copy.
func (p *PromptObject) Clone() *PromptObject {
	if p == nil {
		return nil
	}
	c := *p
	if p.Metadata.Extra != nil {
		c.Metadata.Extra = make(map[string]string, len(p.Metadata.Extra))
		for k, v := range p.Metadata.Extra {
			c.Metadata.Extra[k] = v
		}
	}
	if p.Metadata.Validation != nil {
		v := *p.Metadata.Validation
		v.Warnings = append([]string(nil), p.Metadata.Validation.Warnings...)
		c.Metadata.Validation = &v
	}
	return &c
}
