package stagedb

import (
	"bytes"
	"encoding/hex"
	"log/slog"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func hasPrefix(k, prefix []byte) bool {
	return bytes.HasPrefix(k, prefix)
}

// inc turns data into the smallest byte string of the same length that is
// greater than every string prefixed by data. Returns false for all-0xFF.
func inc(data []byte) bool {
	n := len(data)
	for i := n - 1; i >= 0; i-- {
		if data[i] != 0xFF {
			for j := i; j < n; j++ {
				data[j]++
			}
			return true
		}
	}
	return false
}

func hexstr(data []byte) string {
	if data == nil {
		return "<nil>"
	} else if len(data) == 0 {
		return "<empty>"
	} else {
		return hex.EncodeToString(data)
	}
}

func hexAttr(key string, data []byte) slog.Attr {
	return slog.String(key, hexstr(data))
}
