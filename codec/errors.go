package codec

import (
	"errors"
	"fmt"
	"slices"
)

// Decode failure kinds. Every error returned by a decoder in this package
// wraps exactly one of them.
var (
	ErrInvalidLength     = errors.New("invalid length")
	ErrInvalidEncoding   = errors.New("invalid encoding")
	ErrUnexpectedVariant = errors.New("unexpected variant")
)

// DataError describes a decode failure at a given offset of the input.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

// DataErrf returns a *DataError. The data is copied, so the error may outlive
// the transaction that produced the bytes.
func DataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{slices.Clone(data), off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v at %d: (%d) %x", e.Msg, e.Err, e.Off, n, e.Data)
		} else {
			return fmt.Sprintf("%s at %d: (%d) %x", e.Msg, e.Off, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v at %d: (%d) %x...%x", e.Msg, e.Err, e.Off, n, p, s)
		} else {
			return fmt.Sprintf("%s at %d: (%d) %x...%x", e.Msg, e.Off, n, p, s)
		}
	}
}

// IsDecodeError reports whether err is (or wraps) a codec failure.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrInvalidLength) || errors.Is(err, ErrInvalidEncoding) || errors.Is(err, ErrUnexpectedVariant)
}
