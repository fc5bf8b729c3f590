package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// OutputFormat specifies the output format for results.
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
)

// Formatter formats eval results for output.
type Formatter struct {
	Writer io.Writer
	Format OutputFormat
	Debug  bool // Show the built prompt for failures
}

// NewFormatter creates a new result formatter.
func NewFormatter(w io.Writer, format OutputFormat) *Formatter {
	return &Formatter{Writer: w, Format: format}
}

// FormatResults formats multiple eval results.
func (f *Formatter) FormatResults(results []*RunResult) error {
	if f.Format == OutputFormatJSON {
		return f.formatJSON(results)
	}
	return f.formatTable(results)
}

func (f *Formatter) formatTable(results []*RunResult) error {
	successIcon := color.New(color.FgGreen).Sprint("✓")
	failIcon := color.New(color.FgRed).Sprint("✗")
	dimColor := color.New(color.Faint)
	boldColor := color.New(color.Bold)

	s := Summarize(results)

	for _, result := range results {
		fmt.Fprintf(f.Writer, "\n%s\n", boldColor.Sprint(result.EvalName))

		for _, test := range result.Results {
			icon := successIcon
			if !test.Passed {
				icon = failIcon
			}

			durationStr := ""
			if test.Duration > 0 {
				durationStr = dimColor.Sprintf(" (%s)", test.Duration.Round(time.Millisecond).String())
			}

			name := test.Name
			if test.Description != "" {
				name = test.Description
			}
			fmt.Fprintf(f.Writer, "  %s %s%s\n", icon, name, durationStr)

			if test.Passed {
				continue
			}
			for _, line := range strings.Split(test.Error, "; ") {
				fmt.Fprintf(f.Writer, "    %s\n", dimColor.Sprint(line))
			}
			if f.Debug && test.Output != "" {
				fmt.Fprintf(f.Writer, "\n    %s\n", dimColor.Sprint("─── Prompt ───"))
				for _, line := range strings.Split(test.Output, "\n") {
					fmt.Fprintf(f.Writer, "    %s\n", line)
				}
				fmt.Fprintln(f.Writer)
			}
		}
	}

	statusColor := color.New(color.FgGreen)
	if s.Failed > 0 {
		statusColor = color.New(color.FgRed)
	}
	fmt.Fprintf(f.Writer, "\n%s %d/%d passed (%.0f%%)\n", statusColor.Sprint("Results:"), s.Passed, s.TotalTests, s.PassRate)
	if s.Failed > 0 {
		fmt.Fprintf(f.Writer, "  %d failure(s)\n", s.Failed)
	}
	return nil
}

// JSONOutput represents the JSON output format.
type JSONOutput struct {
	Summary struct {
		Total    int     `json:"total"`
		Passed   int     `json:"passed"`
		Failed   int     `json:"failed"`
		PassRate float64 `json:"passRate"`
	} `json:"summary"`
	Results []JSONEvalResult `json:"results"`
}

// JSONEvalResult represents a single eval's results in JSON.
type JSONEvalResult struct {
	Eval     string           `json:"eval"`
	Total    int              `json:"total"`
	Passed   int              `json:"passed"`
	Failed   int              `json:"failed"`
	Duration string           `json:"duration"`
	Tests    []JSONTestResult `json:"tests"`
}

// JSONTestResult represents a single test result in JSON.
type JSONTestResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

func (f *Formatter) formatJSON(results []*RunResult) error {
	output := JSONOutput{Results: []JSONEvalResult{}}

	for _, result := range results {
		er := JSONEvalResult{
			Eval:     result.EvalName,
			Total:    result.TotalTests,
			Passed:   result.Passed,
			Failed:   result.Failed,
			Duration: result.Duration.String(),
		}
		for _, test := range result.Results {
			tr := JSONTestResult{Name: test.Name, Passed: test.Passed}
			if !test.Passed {
				tr.Error = test.Error
			}
			er.Tests = append(er.Tests, tr)
		}
		output.Results = append(output.Results, er)
		output.Summary.Total += result.TotalTests
		output.Summary.Passed += result.Passed
		output.Summary.Failed += result.Failed
	}

	if output.Summary.Total > 0 {
		output.Summary.PassRate = float64(output.Summary.Passed) / float64(output.Summary.Total)
	}

	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// Summary totals a set of results.
type Summary struct {
	TotalEvals  int
	TotalTests  int
	Passed      int
	Failed      int
	PassRate    float64 // percent
	FailedTests []FailedTest
}

// FailedTest holds info about a failed test.
type FailedTest struct {
	Eval  string
	Test  string
	Error string
}

// Summarize generates a summary from results.
func Summarize(results []*RunResult) *Summary {
	s := &Summary{}

	for _, result := range results {
		s.TotalEvals++
		s.TotalTests += result.TotalTests
		s.Passed += result.Passed
		s.Failed += result.Failed

		for _, test := range result.Results {
			if !test.Passed {
				s.FailedTests = append(s.FailedTests, FailedTest{Eval: result.EvalName, Test: test.Name, Error: test.Error})
			}
		}
	}

	if s.TotalTests > 0 {
		s.PassRate = float64(s.Passed) / float64(s.TotalTests) * 100
	}
	return s
}
