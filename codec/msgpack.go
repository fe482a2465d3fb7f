package codec

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

type msgpackCodec[T any] struct{}

// MsgPack encodes document-like values. Map entries of every map type, and
// struct fields, are ordered by their encoded key bytes, so equal values
// produce equal bytes.
func MsgPack[T any]() Codec[T] {
	return msgpackCodec[T]{}
}

type bytesBuilder struct {
	Buf []byte
}

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = append(bb.Buf, b...)
	return len(b), nil
}

func (msgpackCodec[T]) Append(buf []byte, v T) []byte {
	var bb bytesBuilder
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode %T using MsgPack: %w", v, err))
	}

	out := bytesBuilder{buf}
	var r bytes.Reader
	r.Reset(bb.Buf)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err = canonicalize(dec, &out)
	msgpack.PutDecoder(dec)
	if err != nil {
		panic(fmt.Errorf("failed to canonicalize MsgPack of %T: %w", v, err))
	}
	return out.Buf
}

type msgpackEntry struct {
	k, v []byte
}

// canonicalize copies one msgpack value from dec to out, sorting map entries
// by encoded key at every depth.
func canonicalize(dec *msgpack.Decoder, out *bytesBuilder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return err
		}
		entries := make([]msgpackEntry, n)
		for i := range entries {
			var kb, vb bytesBuilder
			if err := canonicalize(dec, &kb); err != nil {
				return err
			}
			if err := canonicalize(dec, &vb); err != nil {
				return err
			}
			entries[i] = msgpackEntry{kb.Buf, vb.Buf}
		}
		slices.SortFunc(entries, func(a, b msgpackEntry) int {
			return bytes.Compare(a.k, b.k)
		})
		if err := writeHeader(out, n, true); err != nil {
			return err
		}
		for _, e := range entries {
			out.Buf = append(out.Buf, e.k...)
			out.Buf = append(out.Buf, e.v...)
		}
		return nil

	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if err := writeHeader(out, n, false); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := canonicalize(dec, out); err != nil {
				return err
			}
		}
		return nil

	default:
		raw, err := dec.DecodeRaw()
		if err != nil {
			return err
		}
		out.Buf = append(out.Buf, raw...)
		return nil
	}
}

func writeHeader(out *bytesBuilder, n int, isMap bool) error {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(out)
	if isMap {
		return enc.EncodeMapLen(n)
	}
	return enc.EncodeArrayLen(n)
}

func (msgpackCodec[T]) Decode(data []byte) (T, error) {
	var v T
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(&v)
	msgpack.PutDecoder(dec)
	if err != nil {
		return v, DataErrf(data, 0, ErrInvalidEncoding, "failed to decode msgpack into %T: %v", v, err)
	}
	if r.Len() != 0 {
		return v, DataErrf(data, len(data)-r.Len(), ErrInvalidLength, "%d trailing bytes after msgpack", r.Len())
	}
	return v, nil
}
