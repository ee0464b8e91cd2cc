package hwpx

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "PackageError with path and cause",
			err:     NewPackageError("read", "Contents/section0.xml", errors.New("missing entry")),
			wantMsg: "package error during read of 'Contents/section0.xml': missing entry",
		},
		{
			name:    "StructureError",
			err:     NewStructureError("mandatory part 'mimetype' is missing"),
			wantMsg: "structure error: mandatory part 'mimetype' is missing",
		},
		{
			name:    "InvalidRangeError",
			err:     NewInvalidRangeError("cell (3, 0) out of range for 2x2 table"),
			wantMsg: "invalid range: cell (3, 0) out of range for 2x2 table",
		},
		{
			// The constructor takes a plain message; percent signs must
			// survive verbatim rather than being treated as format verbs.
			name:    "InvalidRangeError with percent in message",
			err:     NewInvalidRangeError("width 110% exceeds 100%"),
			wantMsg: "invalid range: width 110% exceeds 100%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	structural := NewStructureError("broken")
	ranged := NewInvalidRangeError("out of bounds")
	pkg := NewPackageError("open", "", errors.New("bad zip"))
	validation := NewValidationError([]ValidationIssue{{Part: "Contents/section0.xml", Message: "no paragraphs"}})

	if !IsStructureError(structural) {
		t.Error("IsStructureError(StructureError) = false")
	}
	if !IsPackageError(structural) {
		t.Error("IsPackageError(StructureError) = false, want true")
	}
	if !IsPackageError(pkg) {
		t.Error("IsPackageError(PackageError) = false")
	}
	if IsStructureError(pkg) {
		t.Error("IsStructureError(PackageError) = true, want false")
	}
	if !IsInvalidRangeError(ranged) {
		t.Error("IsInvalidRangeError(InvalidRangeError) = false")
	}
	if !IsValidationError(validation) {
		t.Error("IsValidationError(ValidationError) = false")
	}
	if !strings.Contains(validation.Error(), "no paragraphs") {
		t.Errorf("validation message = %q, want it to name the issue", validation.Error())
	}

	wrapped := fmt.Errorf("remove failed: %w", ErrLastParagraph)
	if !errors.Is(wrapped, ErrLastParagraph) {
		t.Error("errors.Is() does not see the wrapped sentinel")
	}
}
