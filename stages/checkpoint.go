package stages

import (
	"encoding/binary"

	"github.com/andreyvit/stagedb/codec"
	"github.com/zeebo/xxh3"
)

// Checkpoint is the persisted progress of one stage.
//
// Layout: a version byte, a 10-bit header, the fields, and an 8-byte
// big-endian xxh3 checksum of everything before it.
//
//	bits 0-3  len(BlockNumber)
//	bits 4-7  len(Revision)
//	bit  8    LastKey present
//	bit  9    Meta present
//
// LastKey is a uvarint-prefixed byte string; Meta takes the remainder.
// Empty LastKey and Meta are not stored and decode as nil.
type Checkpoint struct {
	// BlockNumber is the last block the stage has fully processed.
	BlockNumber uint64

	// Revision counts saves. Save sets it, callers never need to.
	Revision uint64

	// LastKey lets a stage resume inside a block range.
	LastKey []byte

	// Meta is stage-specific state, see EncodeMeta.
	Meta []byte
}

const (
	checkpointVersion  = 1
	checkpointBits     = 10
	checkpointSumLen   = 8
	checkpointMinBytes = 1 + (checkpointBits+7)/8 + checkpointSumLen
)

func (cp *Checkpoint) MarshalCompact(buf []byte) []byte {
	start := len(buf)
	var bf codec.Bitfield
	bf.Put(4, uint64(codec.CompactU64Len(cp.BlockNumber)))
	bf.Put(4, uint64(codec.CompactU64Len(cp.Revision)))
	bf.PutBool(len(cp.LastKey) > 0)
	bf.PutBool(len(cp.Meta) > 0)

	buf = append(buf, checkpointVersion)
	buf = bf.Append(buf)
	buf = codec.AppendCompactU64(buf, cp.BlockNumber)
	buf = codec.AppendCompactU64(buf, cp.Revision)
	if len(cp.LastKey) > 0 {
		buf = codec.AppendVarBytes(buf, cp.LastKey)
	}
	buf = append(buf, cp.Meta...)
	return binary.BigEndian.AppendUint64(buf, xxh3.Hash(buf[start:]))
}

func (cp *Checkpoint) UnmarshalCompact(data []byte) error {
	*cp = Checkpoint{}
	if len(data) < checkpointMinBytes {
		return codec.DataErrf(data, 0, codec.ErrInvalidLength, "checkpoint is %d bytes, min %d", len(data), checkpointMinBytes)
	}
	body, sum := data[:len(data)-checkpointSumLen], data[len(data)-checkpointSumLen:]
	if actual := xxh3.Hash(body); actual != binary.BigEndian.Uint64(sum) {
		return codec.DataErrf(data, len(body), codec.ErrInvalidEncoding, "checkpoint checksum %x, computed %016x", sum, actual)
	}

	d := codec.NewDecoder(body)
	if version, _ := d.Byte(); version != checkpointVersion {
		return d.Errorf(codec.ErrUnexpectedVariant, "checkpoint version %d", version)
	}
	bf, err := codec.ReadBitfield(&d, checkpointBits)
	if err != nil {
		return err
	}
	blockLen := bf.Int(4)
	revLen := bf.Int(4)
	hasLastKey := bf.Bool()
	hasMeta := bf.Bool()

	if cp.BlockNumber, err = d.CompactU64(blockLen); err != nil {
		return err
	}
	if cp.Revision, err = d.CompactU64(revLen); err != nil {
		return err
	}
	if hasLastKey {
		if cp.LastKey, err = d.VarBytes(); err != nil {
			return err
		}
		if len(cp.LastKey) == 0 {
			return d.Errorf(codec.ErrInvalidEncoding, "empty last key marked present")
		}
	}
	if hasMeta {
		cp.Meta = d.Rest()
		if cp.Meta == nil {
			return d.Errorf(codec.ErrInvalidLength, "missing meta")
		}
	}
	return d.Finish()
}

// EncodeMeta encodes stage-specific state for Checkpoint.Meta using MsgPack.
func EncodeMeta[T any](v T) []byte {
	return codec.MsgPack[T]().Append(nil, v)
}

// DecodeMeta is the inverse of EncodeMeta. Empty meta decodes to the zero T.
func DecodeMeta[T any](meta []byte) (T, error) {
	if len(meta) == 0 {
		var zero T
		return zero, nil
	}
	return codec.MsgPack[T]().Decode(meta)
}
