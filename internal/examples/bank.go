package examples

import (
	"context"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/promptforge/internal/errors"
	"github.com/HartBrook/promptforge/internal/prompt"
)

// bankFile is the on-disk layout of an example bank.
type bankFile struct {
	Version  int                     `yaml:"version"`
	Examples []prompt.FewShotExample `yaml:"examples"`
}

// Bank is a Retriever over a fixed set of examples, ranked by word overlap
// with the query text.
type Bank struct {
	examples []prompt.FewShotExample
}

// NewBank creates a bank from in-memory examples.
func NewBank(examples []prompt.FewShotExample) *Bank {
	cp := make([]prompt.FewShotExample, len(examples))
	copy(cp, examples)
	return &Bank{examples: cp}
}

// LoadBank reads a YAML example bank from path.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.RetrievalFailed(err)
	}
	return ParseBank(data)
}

// ParseBank decodes a YAML example bank.
func ParseBank(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.ErrRetrievalFailed, "failed to parse example bank", "Check the examples file YAML syntax", err)
	}

	return NewBank(f.Examples), nil
}

// Len returns the number of examples in the bank.
func (b *Bank) Len() int {
	return len(b.examples)
}

// FindExamples returns up to q.K examples for q.Intent, best match first.
// Examples without an intent match any intent.
func (b *Bank) FindExamples(ctx context.Context, q Query) ([]prompt.FewShotExample, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.RetrievalFailed(err)
	}
	if q.K <= 0 {
		return nil, nil
	}

	query := tokenSet(q.Text)

	type scored struct {
		ex    prompt.FewShotExample
		score int
		order int
	}
	var candidates []scored
	for i, ex := range b.examples {
		if ex.Intent != "" && ex.Intent != q.Intent {
			continue
		}
		if q.RequireExpected && !ex.HasExpected() {
			continue
		}
		candidates = append(candidates, scored{ex: ex, score: overlap(query, tokenSet(ex.Input)), order: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > q.K {
		candidates = candidates[:q.K]
	}
	out := make([]prompt.FewShotExample, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.ex)
	}
	return out, nil
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
