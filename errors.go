package stagedb

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTxClosed       = errors.New("transaction closed")
	ErrReadOnly       = errors.New("read-only transaction")
	ErrClosed         = errors.New("database closed")
	ErrNotDupSort     = errors.New("table is not DupSort")
	ErrNotPositioned  = errors.New("cursor is not positioned")
	ErrCursorClosed   = errors.New("cursor closed")
	ErrInvalidSubKey  = errors.New("invalid sub-key")
	ErrSchemaMismatch = errors.New("table does not belong to this database's schema")
	ErrEmptyKey       = errors.New("empty key")
)

// TableError adds the table, the operation and the raw key to an error.
type TableError struct {
	Table string
	Op    string
	Key   []byte
	Msg   string
	Err   error
}

func tableErrf(tbl AnyTable, op string, key []byte, err error, format string, args ...any) error {
	var msg string
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &TableError{tbl.Name(), op, bytes.Clone(key), msg, err}
}

func (e *TableError) Unwrap() error {
	return e.Err
}

func (e *TableError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Table)
	if e.Op != "" {
		buf.WriteByte('.')
		buf.WriteString(e.Op)
	}
	if e.Key != nil {
		buf.WriteByte('/')
		buf.WriteString(hexstr(e.Key))
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
