package stickers

import (
	"errors"
	"strings"
)

var (
	// ErrParseFailure means the uploaded bytes are not a readable spreadsheet.
	ErrParseFailure = errors.New("failed to parse spreadsheet")
	// ErrMissingHeaders means the upload lacks configured headers and the
	// user chose not to continue.
	ErrMissingHeaders = errors.New("spreadsheet is missing headers")
	// ErrEmptyDataset means there are no rows to export.
	ErrEmptyDataset = errors.New("no data to generate PDF, upload a spreadsheet first")
	// ErrInternal wraps any failure of the rasterizer or document assembly.
	ErrInternal = errors.New("export failed")
)

// MissingHeadersError lists the configured headers absent from an upload.
type MissingHeadersError struct {
	Missing []string
}

func (e *MissingHeadersError) Error() string {
	return ErrMissingHeaders.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *MissingHeadersError) Is(target error) bool {
	return target == ErrMissingHeaders
}

// Prompt is the question put to the user before ingesting anyway.
func (e *MissingHeadersError) Prompt() string {
	return "Warning: The uploaded file is missing these headers:\n\n" +
		strings.Join(e.Missing, ", ") +
		"\n\nContinue anyway?"
}

// Confirmer answers blocking yes/no questions.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

var (
	// AlwaysConfirm answers yes to every prompt.
	AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })
	// NeverConfirm answers no to every prompt.
	NeverConfirm Confirmer = ConfirmFunc(func(string) bool { return false })
)

func confirmed(c Confirmer, prompt string) bool {
	if c == nil {
		return false
	}
	return c.Confirm(prompt)
}
