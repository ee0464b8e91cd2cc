// Package hwpx provides custom error types for better error handling and reporting.
package hwpx

import (
	"errors"
	"fmt"
	"strings"
)

// PackageError represents a generic I/O or part-lookup failure inside an
// HWPX package.
type PackageError struct {
	Op    string
	Path  string
	Cause error
}

func (e *PackageError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("package error during %s of '%s': %v", e.Op, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("package error during %s of '%s'", e.Op, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("package error during %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("package error during %s", e.Op)
}

func (e *PackageError) Unwrap() error {
	return e.Cause
}

// NewPackageError creates a new package error
func NewPackageError(op, path string, cause error) error {
	return &PackageError{
		Op:    op,
		Path:  path,
		Cause: cause,
	}
}

// StructureError represents a violation of the mandatory HWPX package
// structure: a missing mandatory part, an attempt to delete one, or a
// manifest-declared rootfile that is absent from the archive.
type StructureError struct {
	Message string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure error: %s", e.Message)
}

// NewStructureError creates a new structure error
func NewStructureError(message string) error {
	return &StructureError{Message: message}
}

// InvalidRangeError represents an out-of-bounds or malformed coordinate
// range, such as a merge rectangle overlapping an existing merge.
type InvalidRangeError struct {
	Message string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: %s", e.Message)
}

// NewInvalidRangeError creates a new invalid range error
func NewInvalidRangeError(message string) error {
	return &InvalidRangeError{Message: message}
}

// Guard errors for structural invariants. Removal operations wrap these so
// callers can test with errors.Is.
var (
	// ErrLastParagraph is returned when removing a paragraph would leave
	// its section empty.
	ErrLastParagraph = errors.New("a section must keep at least one paragraph")
	// ErrLastSection is returned when removing a section would leave the
	// document empty.
	ErrLastSection = errors.New("a document must keep at least one section")
)

// ValidationIssue represents a single validation problem
type ValidationIssue struct {
	Part    string
	Message string
}

func (i ValidationIssue) String() string {
	if i.Part != "" {
		return fmt.Sprintf("%s: %s", i.Part, i.Message)
	}
	return i.Message
}

// ValidationError represents multiple validation issues
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation error"
	}

	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation error: %s", e.Issues[0])
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d validation issues:", len(e.Issues)))
	for _, issue := range e.Issues {
		parts = append(parts, "  "+issue.String())
	}
	return strings.Join(parts, "\n")
}

// NewValidationError creates a validation error from collected issues
func NewValidationError(issues []ValidationIssue) error {
	return &ValidationError{Issues: issues}
}

// IsStructureError checks if an error is a structure error
func IsStructureError(err error) bool {
	var se *StructureError
	return errors.As(err, &se)
}

// IsPackageError checks if an error belongs to the package error family.
// Structure errors are package errors.
func IsPackageError(err error) bool {
	var pe *PackageError
	if errors.As(err, &pe) {
		return true
	}
	return IsStructureError(err)
}

// IsInvalidRangeError checks if an error is an invalid range error
func IsInvalidRangeError(err error) bool {
	var re *InvalidRangeError
	return errors.As(err, &re)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
