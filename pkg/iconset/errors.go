package iconset

import (
	"fmt"
	"strings"

	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/hashicorp/go-multierror"
)

// SizeMismatchError is returned when the size declared by a file name does not
// match the decoded pixel dimensions.
type SizeMismatchError struct {
	Path     string
	Declared appearance.Size
	Width    int
	Height   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: declared size %s needs %dx%d pixels, image is %dx%d",
		e.Path, e.Declared, e.Declared.Pixels(), e.Declared.Pixels(), e.Width, e.Height)
}

// DuplicateCellError is returned when two source files map to the same
// appearance and size.
type DuplicateCellError struct {
	Cell  appearance.Cell
	Paths []string
}

func (e *DuplicateCellError) Error() string {
	return fmt.Sprintf("duplicate source for %s: %s", e.Cell, strings.Join(e.Paths, ", "))
}

// UnreadableSourceError is returned when a candidate file cannot be read or
// decoded.
type UnreadableSourceError struct {
	Path string
	Err  error
}

func (e *UnreadableSourceError) Error() string {
	return fmt.Sprintf("read icon source %s: %v", e.Path, e.Err)
}

func (e *UnreadableSourceError) Unwrap() error { return e.Err }

// NoSuitableSourceError describes a required cell that no source can fill.
type NoSuitableSourceError struct {
	Cell   appearance.Cell
	Reason string
}

func (e *NoSuitableSourceError) Error() string {
	return fmt.Sprintf("no suitable source for %s: %s", e.Cell, e.Reason)
}

// IncompleteIconSetError lists every required cell that could not be
// resolved. Each cell's cause is a *NoSuitableSourceError reachable with
// errors.As.
type IncompleteIconSetError struct {
	Cells []appearance.Cell
	errs  *multierror.Error
}

func (e *IncompleteIconSetError) Error() string {
	return fmt.Sprintf("incomplete icon set, %d cell(s) unresolved: %s", len(e.Cells), e.errs.Error())
}

func (e *IncompleteIconSetError) Unwrap() error { return e.errs }

func newIncompleteIconSetError(errs *multierror.Error) *IncompleteIconSetError {
	errs.ErrorFormat = func(es []error) string {
		msgs := make([]string, 0, len(es))
		for _, err := range es {
			msgs = append(msgs, err.Error())
		}
		return strings.Join(msgs, "; ")
	}
	e := &IncompleteIconSetError{errs: errs}
	for _, err := range errs.Errors {
		if nse, ok := err.(*NoSuitableSourceError); ok {
			e.Cells = append(e.Cells, nse.Cell)
		}
	}
	return e
}
