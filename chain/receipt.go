package chain

import (
	"fmt"

	"github.com/andreyvit/stagedb/codec"
)

type TxType uint8

const (
	LegacyTxType     TxType = 0
	AccessListTxType TxType = 1
	DynamicFeeTxType TxType = 2
	BlobTxType       TxType = 3
	SetCodeTxType    TxType = 4

	maxTxType = SetCodeTxType
)

func (t TxType) String() string {
	switch t {
	case LegacyTxType:
		return "legacy"
	case AccessListTxType:
		return "access-list"
	case DynamicFeeTxType:
		return "dynamic-fee"
	case BlobTxType:
		return "blob"
	case SetCodeTxType:
		return "set-code"
	default:
		return fmt.Sprintf("TxType(%d)", uint8(t))
	}
}

// MaxTopics is the largest number of topics a log can carry.
const MaxTopics = 4

type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

// Receipt is the outcome of executing one transaction.
//
// Compact layout: a 1-byte bit-field header
//
//	bits 0-2  TxType
//	bit  3    Success
//	bits 4-7  len(CumulativeGasUsed)
//
// then CumulativeGasUsed, a uvarint log count, and each log as
// Address ++ uvarint topic count ++ topics ++ var bytes Data.
type Receipt struct {
	TxType            TxType
	Success           bool
	CumulativeGasUsed uint64
	Logs              []Log
}

// minLogSize is the encoded size of a log with no topics and no data.
const minLogSize = AddressLength + 1 + 1

func (r *Receipt) MarshalCompact(buf []byte) []byte {
	if r.TxType > maxTxType {
		panic(fmt.Errorf("invalid receipt tx type %d", r.TxType))
	}
	var bf codec.Bitfield
	bf.Put(3, uint64(r.TxType))
	bf.PutBool(r.Success)
	bf.Put(4, uint64(codec.CompactU64Len(r.CumulativeGasUsed)))
	buf = bf.Append(buf)
	buf = codec.AppendCompactU64(buf, r.CumulativeGasUsed)
	buf = codec.AppendUvarint(buf, uint64(len(r.Logs)))
	for _, l := range r.Logs {
		if len(l.Topics) > MaxTopics {
			panic(fmt.Errorf("log has %d topics", len(l.Topics)))
		}
		buf = append(buf, l.Address[:]...)
		buf = codec.AppendUvarint(buf, uint64(len(l.Topics)))
		for _, t := range l.Topics {
			buf = append(buf, t[:]...)
		}
		buf = codec.AppendVarBytes(buf, l.Data)
	}
	return buf
}

func (r *Receipt) UnmarshalCompact(data []byte) error {
	*r = Receipt{}
	d := codec.NewDecoder(data)
	bf, err := codec.ReadBitfield(&d, 8)
	if err != nil {
		return err
	}
	typ := TxType(bf.Uint(3))
	if typ > maxTxType {
		return d.Errorf(codec.ErrUnexpectedVariant, "unknown tx type %d", typ)
	}
	r.TxType = typ
	r.Success = bf.Bool()
	if r.CumulativeGasUsed, err = d.CompactU64(bf.Int(4)); err != nil {
		return err
	}

	n, err := d.Uvarinti()
	if err != nil {
		return err
	}
	if n > d.Remaining()/minLogSize {
		return d.Errorf(codec.ErrInvalidLength, "%d logs cannot fit into %d bytes", n, d.Remaining())
	}
	if n > 0 {
		r.Logs = make([]Log, n)
	}
	for i := range r.Logs {
		l := &r.Logs[i]
		if err := d.Fixed(l.Address[:]); err != nil {
			return err
		}
		nt, err := d.Uvarinti()
		if err != nil {
			return err
		}
		if nt > MaxTopics {
			return d.Errorf(codec.ErrInvalidEncoding, "log has %d topics", nt)
		}
		if nt > 0 {
			l.Topics = make([]Hash, nt)
		}
		for j := range l.Topics {
			if err := d.Fixed(l.Topics[j][:]); err != nil {
				return err
			}
		}
		if l.Data, err = d.VarBytes(); err != nil {
			return err
		}
	}
	return d.Finish()
}
