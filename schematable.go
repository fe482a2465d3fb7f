package stagedb

import (
	"encoding/json"
	"fmt"

	"github.com/andreyvit/stagedb/codec"
)

// DupMode says whether a table holds one value per key or a sorted set of
// values per key.
type DupMode int

const (
	Single DupMode = iota

	// DupSort tables keep several values per key, ordered by a fixed-width
	// sub-key that the value encoding starts with. The engine stores each of
	// them under key ++ sub-key with the sub-key stripped from the value.
	DupSort
)

func (m DupMode) String() string {
	switch m {
	case Single:
		return "single"
	case DupSort:
		return "dupsort"
	default:
		return fmt.Sprintf("DupMode(%d)", int(m))
	}
}

// AnyTable is the untyped view of a table, for diagnostics and tooling.
type AnyTable interface {
	Name() string
	Schema() *Schema
	DupMode() DupMode
	KeyWidth() int
	SubKeyWidth() int
	Compression() Compression

	// FormatKey renders a raw engine key for humans.
	FormatKey(rawKey []byte) string
	// FormatValue renders a raw engine record's value for humans.
	FormatValue(rawKey, rawValue []byte) string
	// ParseKey encodes a key typed by a human.
	ParseKey(s string) ([]byte, error)
}

type Table[K, V any] struct {
	schema          *Schema
	name            string
	pos             int // index in schema.tables
	keys            codec.KeyCodec[K]
	values          codec.Codec[V]
	keyWidth        int
	dupMode         DupMode
	subKeyWidth     int
	compression     Compression
	minCompressSize int
	suppressContent bool
}

type tableOpt int

const (
	SuppressContentWhenLogging = tableOpt(1)
)

// MinCompressSize overrides DefaultMinCompressSize for a table.
type MinCompressSize int

// DefineTable registers a table holding one value per key. Options are
// Compression, MinCompressSize and SuppressContentWhenLogging.
func DefineTable[K, V any](scm *Schema, name string, keys codec.KeyCodec[K], values codec.Codec[V], opts ...any) *Table[K, V] {
	tbl := newTable(scm, name, keys, values, opts)
	tbl.pos = scm.addTable(tbl)
	return tbl
}

// DefineDupTable registers a DupSort table. The key codec must have a fixed
// width, and every value encoding must start with a subKeyWidth-byte
// sub-key. DupSort values are never compressed.
func DefineDupTable[K, V any](scm *Schema, name string, keys codec.KeyCodec[K], values codec.Codec[V], subKeyWidth int, opts ...any) *Table[K, V] {
	tbl := newTable(scm, name, keys, values, opts)
	if tbl.keyWidth <= 0 {
		panic(fmt.Errorf("%s: DupSort table needs a fixed-width key codec, %T has variable width", name, keys))
	}
	if subKeyWidth <= 0 {
		panic(fmt.Errorf("%s: DupSort sub-key width must be positive, got %d", name, subKeyWidth))
	}
	if tbl.compression != NoCompression {
		panic(fmt.Errorf("%s: DupSort tables cannot be compressed", name))
	}
	tbl.dupMode = DupSort
	tbl.subKeyWidth = subKeyWidth
	tbl.pos = scm.addTable(tbl)
	return tbl
}

func newTable[K, V any](scm *Schema, name string, keys codec.KeyCodec[K], values codec.Codec[V], opts []any) *Table[K, V] {
	if keys == nil || values == nil {
		panic(fmt.Errorf("%s: nil codec", name))
	}
	tbl := &Table[K, V]{
		schema:          scm,
		name:            name,
		keys:            keys,
		values:          values,
		keyWidth:        keys.Width(),
		minCompressSize: DefaultMinCompressSize,
	}
	for _, opt := range opts {
		switch opt := opt.(type) {
		case Compression:
			if !opt.isValid() {
				panic(fmt.Errorf("%s: invalid compression %v", name, opt))
			}
			tbl.compression = opt
		case MinCompressSize:
			tbl.minCompressSize = int(opt)
		case tableOpt:
			if opt == SuppressContentWhenLogging {
				tbl.suppressContent = true
			}
		default:
			panic(fmt.Errorf("%s: invalid option %T %v", name, opt, opt))
		}
	}
	return tbl
}

func (tbl *Table[K, V]) Name() string {
	return tbl.name
}

func (tbl *Table[K, V]) String() string {
	return tbl.name
}

func (tbl *Table[K, V]) Schema() *Schema {
	return tbl.schema
}

func (tbl *Table[K, V]) DupMode() DupMode {
	return tbl.dupMode
}

func (tbl *Table[K, V]) KeyWidth() int {
	return tbl.keyWidth
}

func (tbl *Table[K, V]) SubKeyWidth() int {
	return tbl.subKeyWidth
}

func (tbl *Table[K, V]) Compression() Compression {
	return tbl.compression
}

func (tbl *Table[K, V]) isDup() bool {
	return tbl.dupMode == DupSort
}

func (tbl *Table[K, V]) appendKey(buf []byte, k K) ([]byte, error) {
	off := len(buf)
	buf = tbl.keys.Append(buf, k)
	n := len(buf) - off
	if n == 0 {
		return buf, tableErrf(tbl, "encode", nil, ErrEmptyKey, "")
	}
	if tbl.keyWidth > 0 && n != tbl.keyWidth {
		return buf, tableErrf(tbl, "encode", buf[off:], codec.ErrInvalidLength, "key codec produced %d bytes instead of %d", n, tbl.keyWidth)
	}
	return buf, nil
}

// encodeRecord returns freshly allocated raw engine bytes for k and v.
func (tbl *Table[K, V]) encodeRecord(k K, v V) (rawKey, rawVal []byte, err error) {
	rawKey, err = tbl.appendKey(make([]byte, 0, tbl.keyWidth+tbl.subKeyWidth), k)
	if err != nil {
		return nil, nil, err
	}
	enc := tbl.values.Append(nil, v)
	if tbl.isDup() {
		w := tbl.subKeyWidth
		if len(enc) < w {
			return nil, nil, tableErrf(tbl, "encode", rawKey, codec.ErrInvalidLength, "value encoding is %d bytes, shorter than the %d-byte sub-key", len(enc), w)
		}
		return append(rawKey, enc[:w]...), enc[w:], nil
	}
	if tbl.compression != NoCompression {
		rawVal, err = compressValue(nil, tbl.compression, tbl.minCompressSize, enc)
		if err != nil {
			return nil, nil, tableErrf(tbl, "compress", rawKey, err, "")
		}
		return rawKey, rawVal, nil
	}
	return rawKey, enc, nil
}

// primaryKey returns the part of a raw engine key that encodes K.
func (tbl *Table[K, V]) primaryKey(rawKey []byte) []byte {
	if tbl.isDup() && len(rawKey) >= tbl.keyWidth {
		return rawKey[:tbl.keyWidth]
	}
	return rawKey
}

func (tbl *Table[K, V]) decodeKey(rawKey []byte) (K, error) {
	if tbl.isDup() && len(rawKey) != tbl.keyWidth+tbl.subKeyWidth {
		var zero K
		decodeErrorsTotal.Inc()
		return zero, tableErrf(tbl, "decode", rawKey, codec.DataErrf(rawKey, 0, codec.ErrInvalidLength, "DupSort key must be %d+%d bytes", tbl.keyWidth, tbl.subKeyWidth), "")
	}
	k, err := tbl.keys.Decode(tbl.primaryKey(rawKey))
	if err != nil {
		decodeErrorsTotal.Inc()
		return k, tableErrf(tbl, "decode", rawKey, err, "key")
	}
	return k, nil
}

func (tbl *Table[K, V]) decodeValue(rawKey, rawVal []byte) (V, error) {
	data := rawVal
	if tbl.isDup() {
		w := tbl.subKeyWidth
		if len(rawKey) < w {
			var zero V
			decodeErrorsTotal.Inc()
			return zero, tableErrf(tbl, "decode", rawKey, codec.ErrInvalidLength, "key shorter than sub-key")
		}
		data = make([]byte, 0, w+len(rawVal))
		data = append(data, rawKey[len(rawKey)-w:]...)
		data = append(data, rawVal...)
	} else if tbl.compression != NoCompression {
		var err error
		data, err = decompressValue(rawVal)
		if err != nil {
			var zero V
			decodeErrorsTotal.Inc()
			return zero, tableErrf(tbl, "decode", rawKey, err, "value")
		}
	}
	v, err := tbl.values.Decode(data)
	if err != nil {
		decodeErrorsTotal.Inc()
		return v, tableErrf(tbl, "decode", rawKey, err, "value")
	}
	return v, nil
}

func (tbl *Table[K, V]) decodeEntry(rawKey, rawVal []byte) (K, V, error) {
	k, err := tbl.decodeKey(rawKey)
	if err != nil {
		var zero V
		return k, zero, err
	}
	v, err := tbl.decodeValue(rawKey, rawVal)
	return k, v, err
}

func (tbl *Table[K, V]) FormatKey(rawKey []byte) string {
	k, err := tbl.decodeKey(rawKey)
	if err != nil {
		return "!" + hexstr(rawKey)
	}
	if s, ok := any(k).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(k)
}

func (tbl *Table[K, V]) FormatValue(rawKey, rawValue []byte) string {
	if tbl.suppressContent {
		return "<suppressed>"
	}
	v, err := tbl.decodeValue(rawKey, rawValue)
	if err != nil {
		return "** ERROR: " + err.Error()
	}
	return loggableVal(v)
}

func (tbl *Table[K, V]) ParseKey(s string) ([]byte, error) {
	p, ok := tbl.keys.(codec.Parser[K])
	if !ok {
		return nil, fmt.Errorf("%s: keys cannot be parsed from text", tbl.name)
	}
	k, err := p.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid key %q: %w", tbl.name, s, err)
	}
	return tbl.appendKey(nil, k)
}

func loggableVal(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(raw)
}
