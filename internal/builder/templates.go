package builder

import (
	"fmt"
	"strings"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// maxElaboratedExamples caps examples in the elaborated form.
const maxElaboratedExamples = 3

// restateLimit bounds each restated field, in runes.
const restateLimit = 200

// renderInput collects everything a template needs.
type renderInput struct {
	req         prompt.Request
	intent      prompt.Intent
	role        string
	examples    []prompt.FewShotExample
	constraints prompt.Constraints
}

// renderDirect builds the direct form used for SIMPLE and MODERATE requests.
func renderDirect(in renderInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a %s.\n\n", in.role)
	writeTaskBody(&b, in, in.examples)

	b.WriteString("## Instructions\n")
	b.WriteString(instructions[in.intent])
	b.WriteString("\n")
	writeConstraintLines(&b, in, false)

	return strings.TrimRight(b.String(), "\n")
}

// renderElaborated builds the rephrase-then-respond form used for COMPLEX
// requests: the request is restated before the task body.
func renderElaborated(in renderInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a %s.\n\n", in.role)

	b.WriteString("## Understanding the Request\n")
	b.WriteString("Before answering, restate the request in your own words and confirm the requirements.\n")
	fmt.Fprintf(&b, "Restatement: %s\n\n", restate(in))

	examples := in.examples
	if len(examples) > maxElaboratedExamples {
		examples = examples[:maxElaboratedExamples]
	}
	writeTaskBody(&b, in, examples)

	b.WriteString("## Approach\n")
	b.WriteString("1. Confirm the restated requirements above.\n")
	fmt.Fprintf(&b, "2. %s\n", instructions[in.intent])
	b.WriteString("3. Explain the reasoning behind each decision.\n")
	writeConstraintLines(&b, in, true)

	return strings.TrimRight(b.String(), "\n")
}

// writeTaskBody writes task, context, examples and structured inputs.
func writeTaskBody(b *strings.Builder, in renderInput, examples []prompt.FewShotExample) {
	b.WriteString("## Task\n")
	b.WriteString(strings.TrimSpace(in.req.Idea))
	b.WriteString("\n\n")

	if ctx := strings.TrimSpace(in.req.Context); ctx != "" {
		b.WriteString("## Context\n")
		b.WriteString(ctx)
		b.WriteString("\n\n")
	}

	if len(examples) > 0 {
		b.WriteString("## Examples\n")
		for i, ex := range examples {
			fmt.Fprintf(b, "Example %d:\nInput: %s\nOutput: %s\n", i+1, ex.Input, ex.Output)
			if ex.HasExpected() {
				fmt.Fprintf(b, "Expected: %s\n", ex.ExpectedOutput)
			}
		}
		b.WriteString("\n")
	}

	writeStructuredInputs(b, in.req.Inputs)
}

// writeStructuredInputs appends attachments verbatim.
func writeStructuredInputs(b *strings.Builder, inputs *prompt.StructuredInputs) {
	if inputs.HasCode() {
		fmt.Fprintf(b, "## Code\n```%s\n%s\n```\n\n", strings.ToLower(inputs.Language()), inputs.CodeSnippet)
	}
	if inputs.HasErrorLog() {
		fmt.Fprintf(b, "## Error\n```\n%s\n```\n\n", inputs.ErrorLog)
	}

	lang, fw := inputs.Language(), inputs.FrameworkName()
	switch {
	case lang != "" && fw != "":
		fmt.Fprintf(b, "Target: %s (framework: %s)\n\n", lang, fw)
	case lang != "":
		fmt.Fprintf(b, "Target: %s\n\n", lang)
	case fw != "":
		fmt.Fprintf(b, "Framework: %s\n\n", fw)
	}
}

// writeConstraintLines turns declared constraints into instructions so a
// fresh template already satisfies them.
func writeConstraintLines(b *strings.Builder, in renderInput, elaborated bool) {
	if in.constraints.IncludeExamples && len(in.examples) == 0 {
		b.WriteString("Include a short usage example.\n")
	}
	if in.constraints.IncludeExplanation && !elaborated {
		b.WriteString("Explain the reasoning behind the answer.\n")
	}
	if in.constraints.Format == prompt.FormatCode {
		fmt.Fprintf(b, "Return the code in a ```%s fenced block.\n", strings.ToLower(in.req.Inputs.Language()))
	}
}

// restate summarizes the request in the builder's own words.
func restate(in renderInput) string {
	idea := truncate(firstSentence(in.req.Idea), restateLimit)

	var s string
	switch in.intent {
	case prompt.IntentDebug:
		s = fmt.Sprintf("something is failing and needs a diagnosis and a fix: %s.", idea)
	case prompt.IntentRefactor:
		s = fmt.Sprintf("existing code must get better without changing what it does: %s.", idea)
	case prompt.IntentExplain:
		s = fmt.Sprintf("the goal is understanding, not new code: %s.", idea)
	default:
		s = fmt.Sprintf("new code is needed that will %s.", lowerFirst(idea))
	}

	if ctx := strings.TrimSpace(in.req.Context); ctx != "" {
		s += fmt.Sprintf(" Relevant background: %s.", truncate(firstSentence(ctx), restateLimit))
	}
	if lang := in.req.Inputs.Language(); lang != "" {
		s += fmt.Sprintf(" The answer must target %s.", lang)
	}
	return s
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?\n"); i > 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, ".!? ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return string(r)
}
