// Package prompt defines the request and prompt-object model shared by the
// promptforge pipeline stages.
package prompt

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/HartBrook/promptforge/internal/errors"
)

// MaxContextLength bounds the free-text context of a request, in runes.
const MaxContextLength = 5000

// Mode tags how the caller wants the request executed.
type Mode string

const (
	ModeNLAC  Mode = "nlac"
	ModeFast  Mode = "fast"
	ModeDeep  Mode = "deep"
	ModeBatch Mode = "batch"
)

// StructuredInputs carries optional machine-readable attachments.
// Every field is independently optional.
type StructuredInputs struct {
	CodeSnippet    string `json:"code_snippet,omitempty" yaml:"code_snippet,omitempty"`
	ErrorLog       string `json:"error_log,omitempty" yaml:"error_log,omitempty"`
	TargetLanguage string `json:"target_language,omitempty" yaml:"target_language,omitempty"`
	Framework      string `json:"framework,omitempty" yaml:"framework,omitempty"`
}

// HasCode reports whether a non-blank code snippet is attached.
func (s *StructuredInputs) HasCode() bool {
	return s != nil && strings.TrimSpace(s.CodeSnippet) != ""
}

// HasErrorLog reports whether a non-blank error log is attached.
func (s *StructuredInputs) HasErrorLog() bool {
	return s != nil && strings.TrimSpace(s.ErrorLog) != ""
}

// Language returns the target language, or "" when absent.
func (s *StructuredInputs) Language() string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.TargetLanguage)
}

// FrameworkName returns the target framework, or "" when absent.
func (s *StructuredInputs) FrameworkName() string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.Framework)
}

// Request is the immutable input to the pipeline. The pipeline never
// mutates a Request it receives.
type Request struct {
	Idea    string            `json:"idea" validate:"required,notblank"`
	Context string            `json:"context,omitempty" validate:"maxrunes"`
	Mode    Mode              `json:"mode,omitempty"`
	Inputs  *StructuredInputs `json:"inputs,omitempty"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = validate.RegisterValidation("maxrunes", func(fl validator.FieldLevel) bool {
			return utf8.RuneCountInString(fl.Field().String()) <= MaxContextLength
		})
	})
	return validate
}

// Validate checks the request for required fields and bounds.
func (r Request) Validate() error {
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return errors.InputInvalid("request", err.Error())
	}
	// Report the first failing field; the rest usually follow from it.
	fe := validationErrors[0]
	switch fe.Tag() {
	case "required", "notblank":
		return errors.InputInvalid(strings.ToLower(fe.Field()), "must not be empty")
	case "maxrunes":
		return errors.InputInvalid(strings.ToLower(fe.Field()), fmt.Sprintf("exceeds %d characters", MaxContextLength))
	default:
		return errors.InputInvalid(strings.ToLower(fe.Field()), fmt.Sprintf("failed rule '%s'", fe.Tag()))
	}
}
