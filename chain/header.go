package chain

import (
	"github.com/andreyvit/stagedb/codec"
)

// Header is a block header.
//
// Compact layout: a 4-byte bit-field header followed by the fields in
// declaration order, with ExtraData taking the remainder.
//
//	bits  0-5   len(Difficulty)  0..32
//	bits  6-9   len(Number)      0..8
//	bits 10-13  len(GasLimit)
//	bits 14-17  len(GasUsed)
//	bits 18-21  len(Timestamp)
//	bits 22-25  len(Nonce)
//	bit  26     BaseFee present
//	bits 27-30  len(BaseFee)
//	bit  31     WithdrawalsRoot present
//
// An empty ExtraData is stored as nothing and decodes as nil.
type Header struct {
	ParentHash      Hash
	Beneficiary     Address
	StateRoot       Hash
	TxRoot          Hash
	ReceiptsRoot    Hash
	Difficulty      U256
	Number          BlockNumber
	GasLimit        uint64
	GasUsed         uint64
	Timestamp       uint64
	MixHash         Hash
	Nonce           uint64
	BaseFee         *uint64
	WithdrawalsRoot *Hash
	ExtraData       []byte
}

const headerBits = 32

func (h *Header) MarshalCompact(buf []byte) []byte {
	var bf codec.Bitfield
	bf.Put(6, uint64(codec.TrimmedLen(h.Difficulty[:])))
	bf.Put(4, uint64(codec.CompactU64Len(uint64(h.Number))))
	bf.Put(4, uint64(codec.CompactU64Len(h.GasLimit)))
	bf.Put(4, uint64(codec.CompactU64Len(h.GasUsed)))
	bf.Put(4, uint64(codec.CompactU64Len(h.Timestamp)))
	bf.Put(4, uint64(codec.CompactU64Len(h.Nonce)))
	bf.PutBool(h.BaseFee != nil)
	if h.BaseFee != nil {
		bf.Put(4, uint64(codec.CompactU64Len(*h.BaseFee)))
	} else {
		bf.Put(4, 0)
	}
	bf.PutBool(h.WithdrawalsRoot != nil)

	buf = bf.Append(buf)
	buf = append(buf, h.ParentHash[:]...)
	buf = append(buf, h.Beneficiary[:]...)
	buf = append(buf, h.StateRoot[:]...)
	buf = append(buf, h.TxRoot[:]...)
	buf = append(buf, h.ReceiptsRoot[:]...)
	buf = codec.AppendTrimmed(buf, h.Difficulty[:])
	buf = codec.AppendCompactU64(buf, uint64(h.Number))
	buf = codec.AppendCompactU64(buf, h.GasLimit)
	buf = codec.AppendCompactU64(buf, h.GasUsed)
	buf = codec.AppendCompactU64(buf, h.Timestamp)
	buf = append(buf, h.MixHash[:]...)
	buf = codec.AppendCompactU64(buf, h.Nonce)
	if h.BaseFee != nil {
		buf = codec.AppendCompactU64(buf, *h.BaseFee)
	}
	if h.WithdrawalsRoot != nil {
		buf = append(buf, h.WithdrawalsRoot[:]...)
	}
	return append(buf, h.ExtraData...)
}

func (h *Header) UnmarshalCompact(data []byte) error {
	*h = Header{}
	d := codec.NewDecoder(data)
	bf, err := codec.ReadBitfield(&d, headerBits)
	if err != nil {
		return err
	}
	diffLen := bf.Int(6)
	numLen := bf.Int(4)
	gasLimitLen := bf.Int(4)
	gasUsedLen := bf.Int(4)
	timeLen := bf.Int(4)
	nonceLen := bf.Int(4)
	hasBaseFee := bf.Bool()
	baseFeeLen := bf.Int(4)
	hasWithdrawals := bf.Bool()

	if !hasBaseFee && baseFeeLen != 0 {
		return d.Errorf(codec.ErrUnexpectedVariant, "base fee length without base fee")
	}

	if err := d.Fixed(h.ParentHash[:]); err != nil {
		return err
	}
	if err := d.Fixed(h.Beneficiary[:]); err != nil {
		return err
	}
	for _, f := range []*Hash{&h.StateRoot, &h.TxRoot, &h.ReceiptsRoot} {
		if err := d.Fixed(f[:]); err != nil {
			return err
		}
	}
	if err := d.Trimmed(h.Difficulty[:], diffLen); err != nil {
		return err
	}
	num, err := d.CompactU64(numLen)
	if err != nil {
		return err
	}
	h.Number = BlockNumber(num)
	if h.GasLimit, err = d.CompactU64(gasLimitLen); err != nil {
		return err
	}
	if h.GasUsed, err = d.CompactU64(gasUsedLen); err != nil {
		return err
	}
	if h.Timestamp, err = d.CompactU64(timeLen); err != nil {
		return err
	}
	if err := d.Fixed(h.MixHash[:]); err != nil {
		return err
	}
	if h.Nonce, err = d.CompactU64(nonceLen); err != nil {
		return err
	}
	if hasBaseFee {
		v, err := d.CompactU64(baseFeeLen)
		if err != nil {
			return err
		}
		h.BaseFee = &v
	}
	if hasWithdrawals {
		var root Hash
		if err := d.Fixed(root[:]); err != nil {
			return err
		}
		h.WithdrawalsRoot = &root
	}
	h.ExtraData = d.Rest()
	return nil
}

// NumHash returns the header's block number and the given hash as a key.
func (h *Header) NumHash(hash Hash) BlockNumHash {
	return BlockNumHash{h.Number, hash}
}
