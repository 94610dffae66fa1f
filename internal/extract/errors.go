package extract

import "fmt"

// MalformedInputError reports input that cannot be parsed. It aborts the run
// before anything is staged.
type MalformedInputError struct {
	Path   string
	Offset int64 // byte offset in the (decompressed) stream, -1 if unknown
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("malformed input %s at offset %d: %v", e.Path, e.Offset, e.Err)
	}
	return fmt.Sprintf("malformed input %s: %v", e.Path, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}
