package executor

import (
	"bytes"
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/HartBrook/promptforge/internal/errors"
)

// DefaultTimeout bounds one interpreted run.
const DefaultTimeout = 10 * time.Second

// maxOutput caps captured output quoted in error messages.
const maxOutput = 2000

var (
	goFencePattern = regexp.MustCompile("(?s)```(?:go|golang)?[ \t]*\n(.*?)```")
	packageClause  = regexp.MustCompile(`(?m)^\s*package\s+\w+`)
)

// allowedPackages are the standard library packages candidates may import.
// Filesystem, process, network and unsafe packages are excluded.
var allowedPackages = map[string]bool{
	"bufio": true, "bytes": true, "container/heap": true, "container/list": true,
	"encoding/base64": true, "encoding/hex": true, "encoding/json": true,
	"errors": true, "fmt": true, "math": true, "math/big": true, "regexp": true,
	"slices": true, "maps": true, "sort": true, "strconv": true, "strings": true,
	"sync": true, "time": true, "unicode": true, "unicode/utf8": true,
}

// allowedSymbols is the subset of stdlib.Symbols the interpreter may
// resolve. Packages outside allowedPackages do not exist for candidates.
var allowedSymbols = filterSymbols(stdlib.Symbols)

// filterSymbols keeps the entries of exports whose import path is allowed.
// Keys have the form "import/path/name".
func filterSymbols(exports interp.Exports) interp.Exports {
	out := make(interp.Exports, len(allowedPackages))
	for key, syms := range exports {
		if allowedPackages[path.Dir(key)] {
			out[key] = syms
		}
	}
	return out
}

// Yaegi interprets the Go code block of a candidate.
type Yaegi struct {
	timeout time.Duration
}

// YaegiOption configures a Yaegi executor.
type YaegiOption func(*Yaegi)

// WithTimeout bounds each run. Values of zero or less are ignored.
func WithTimeout(d time.Duration) YaegiOption {
	return func(y *Yaegi) {
		if d > 0 {
			y.timeout = d
		}
	}
}

// NewYaegi creates an interpreter-backed executor.
func NewYaegi(opts ...YaegiOption) *Yaegi {
	y := &Yaegi{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Execute extracts the first Go code block of candidate and runs it. Code
// without a main function only has to compile.
func (y *Yaegi) Execute(ctx context.Context, candidate string) error {
	code, ok := ExtractGoCode(candidate)
	if !ok {
		return errors.ExecutionFailed("candidate has no Go code block", nil)
	}

	if !packageClause.MatchString(code) {
		code = "package main\n\n" + code
	}

	forbidden, err := forbiddenImports(code)
	if err != nil {
		return err
	}
	if len(forbidden) > 0 {
		return errors.ExecutionFailed(fmt.Sprintf("forbidden imports: %s", strings.Join(forbidden, ", ")), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	var out bytes.Buffer
	i := interp.New(interp.Options{Stdout: &out, Stderr: &out})
	if err := i.Use(allowedSymbols); err != nil {
		return errors.ExecutionFailed("failed to load stdlib", err)
	}

	if _, err := i.EvalWithContext(ctx, code); err != nil {
		msg := firstLine(err.Error())
		if s := strings.TrimSpace(out.String()); s != "" {
			msg += "\n" + clip(s, maxOutput)
		}
		return errors.ExecutionFailed(msg, nil)
	}
	return nil
}

// ExtractGoCode returns the body of the first go, golang or unlabeled fenced
// block, or the whole candidate when it looks like bare Go source.
func ExtractGoCode(candidate string) (string, bool) {
	if m := goFencePattern.FindStringSubmatch(candidate); m != nil {
		code := strings.TrimSpace(m[1])
		return code, code != ""
	}
	trimmed := strings.TrimSpace(candidate)
	if strings.HasPrefix(trimmed, "package ") || strings.HasPrefix(trimmed, "func ") {
		return trimmed, true
	}
	return "", false
}

// forbiddenImports parses the import declarations of code and returns the
// paths that are not allowed, sorted.
func forbiddenImports(code string) ([]string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), "candidate.go", code, parser.ImportsOnly)
	if err != nil {
		return nil, errors.ExecutionFailed(firstLine(err.Error()), nil)
	}

	var bad []string
	for _, spec := range f.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil || !allowedPackages[p] {
			bad = append(bad, strings.Trim(spec.Path.Value, "\"`"))
		}
	}
	sort.Strings(bad)
	return bad, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
