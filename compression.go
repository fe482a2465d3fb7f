package stagedb

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/andreyvit/stagedb/codec"
)

// Compression selects how values of a table are compressed. A table with
// compression stores every value as a 1-byte method tag followed by the
// payload; the tag numbers match RocksDB block trailers.
type Compression uint8

const (
	NoCompression Compression = 0
	Snappy        Compression = 1
	LZ4           Compression = 4
	Zstd          Compression = 7
)

// DefaultMinCompressSize is the smallest value that gets compressed.
const DefaultMinCompressSize = 64

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

func (c Compression) isValid() bool {
	switch c {
	case NoCompression, Snappy, LZ4, Zstd:
		return true
	default:
		return false
	}
}

var zstdEncoder = sync.OnceValue(func() *zstd.Encoder {
	return must(zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1)))
})

var zstdDecoder = sync.OnceValue(func() *zstd.Decoder {
	return must(zstd.NewReader(nil, zstd.WithDecoderConcurrency(1)))
})

// compressValue appends the tagged form of data to buf. Values shorter than
// minSize, and values that don't shrink, are stored with tag 0.
func compressValue(buf []byte, c Compression, minSize int, data []byte) ([]byte, error) {
	if c == NoCompression || len(data) < minSize {
		buf = append(buf, byte(NoCompression))
		return append(buf, data...), nil
	}
	var packed []byte
	switch c {
	case Snappy:
		packed = snappy.Encode(nil, data)
	case LZ4:
		var b bytes.Buffer
		w := lz4.NewWriter(&b)
		if err := w.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
			return nil, fmt.Errorf("lz4 apply level: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 close: %w", err)
		}
		packed = b.Bytes()
	case Zstd:
		packed = zstdEncoder().EncodeAll(data, nil)
	default:
		panic(fmt.Errorf("unsupported compression %v", c))
	}
	if len(packed) >= len(data) {
		buf = append(buf, byte(NoCompression))
		return append(buf, data...), nil
	}
	buf = append(buf, byte(c))
	return append(buf, packed...), nil
}

// decompressValue strips the tag. The result may alias data when the value
// was stored uncompressed.
func decompressValue(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, codec.DataErrf(data, 0, codec.ErrInvalidLength, "missing compression tag")
	}
	payload := data[1:]
	var out []byte
	var err error
	switch Compression(data[0]) {
	case NoCompression:
		return payload, nil
	case Snappy:
		out, err = snappy.Decode(nil, payload)
	case LZ4:
		out, err = io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
	case Zstd:
		out, err = zstdDecoder().DecodeAll(payload, nil)
	default:
		return nil, codec.DataErrf(data, 0, codec.ErrUnexpectedVariant, "unknown compression tag %d", data[0])
	}
	if err != nil {
		return nil, codec.DataErrf(data, 1, codec.ErrInvalidEncoding, "%v: %v", Compression(data[0]), err)
	}
	return out, nil
}
