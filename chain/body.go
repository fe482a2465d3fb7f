package chain

import (
	"github.com/andreyvit/stagedb/codec"
)

// BodyIndices locates a block's transactions in the Transactions table.
//
// Compact layout: a 1-byte bit-field header (len(FirstTxNum) in bits 0-3,
// len(TxCount) in bits 4-7) followed by both numbers.
type BodyIndices struct {
	FirstTxNum TxNumber
	TxCount    uint64
}

// LastTxNum returns the number of the block's last transaction. It is only
// meaningful when TxCount > 0.
func (b BodyIndices) LastTxNum() TxNumber {
	return b.FirstTxNum + TxNumber(b.TxCount) - 1
}

// NextTxNum returns the first transaction number of the following block.
func (b BodyIndices) NextTxNum() TxNumber {
	return b.FirstTxNum + TxNumber(b.TxCount)
}

func (b BodyIndices) IsEmpty() bool {
	return b.TxCount == 0
}

func (b *BodyIndices) MarshalCompact(buf []byte) []byte {
	var bf codec.Bitfield
	bf.Put(4, uint64(codec.CompactU64Len(uint64(b.FirstTxNum))))
	bf.Put(4, uint64(codec.CompactU64Len(b.TxCount)))
	buf = bf.Append(buf)
	buf = codec.AppendCompactU64(buf, uint64(b.FirstTxNum))
	return codec.AppendCompactU64(buf, b.TxCount)
}

func (b *BodyIndices) UnmarshalCompact(data []byte) error {
	*b = BodyIndices{}
	d := codec.NewDecoder(data)
	bf, err := codec.ReadBitfield(&d, 8)
	if err != nil {
		return err
	}
	firstLen, countLen := bf.Int(4), bf.Int(4)
	first, err := d.CompactU64(firstLen)
	if err != nil {
		return err
	}
	b.FirstTxNum = TxNumber(first)
	if b.TxCount, err = d.CompactU64(countLen); err != nil {
		return err
	}
	return d.Finish()
}
