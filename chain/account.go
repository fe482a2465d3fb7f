package chain

import (
	"github.com/andreyvit/stagedb/codec"
)

// Account is the plain state of an address.
//
// Compact layout: a 2-byte bit-field header, then Nonce, Balance and the
// optional CodeHash.
//
//	bits 0-3   len(Nonce)
//	bits 4-9   len(Balance)
//	bit  10    CodeHash present
type Account struct {
	Nonce    uint64
	Balance  U256
	CodeHash *Hash
}

const accountBits = 11

func (a *Account) MarshalCompact(buf []byte) []byte {
	var bf codec.Bitfield
	bf.Put(4, uint64(codec.CompactU64Len(a.Nonce)))
	bf.Put(6, uint64(codec.TrimmedLen(a.Balance[:])))
	bf.PutBool(a.CodeHash != nil)
	buf = bf.Append(buf)
	buf = codec.AppendCompactU64(buf, a.Nonce)
	buf = codec.AppendTrimmed(buf, a.Balance[:])
	if a.CodeHash != nil {
		buf = append(buf, a.CodeHash[:]...)
	}
	return buf
}

func (a *Account) UnmarshalCompact(data []byte) error {
	*a = Account{}
	d := codec.NewDecoder(data)
	if err := a.decode(&d); err != nil {
		return err
	}
	return d.Finish()
}

func (a *Account) decode(d *codec.Decoder) error {
	bf, err := codec.ReadBitfield(d, accountBits)
	if err != nil {
		return err
	}
	nonceLen, balanceLen, hasCode := bf.Int(4), bf.Int(6), bf.Bool()
	if a.Nonce, err = d.CompactU64(nonceLen); err != nil {
		return err
	}
	if err := d.Trimmed(a.Balance[:], balanceLen); err != nil {
		return err
	}
	if hasCode {
		var h Hash
		if err := d.Fixed(h[:]); err != nil {
			return err
		}
		a.CodeHash = &h
	}
	return nil
}

// StorageEntry is one storage slot of a contract. In a duplicate-key table
// keyed by address, Key is the sub-key.
//
// Compact layout: Key (32 bytes) ++ compact Value.
type StorageEntry struct {
	Key   Hash
	Value U256
}

func (e *StorageEntry) MarshalCompact(buf []byte) []byte {
	buf = append(buf, e.Key[:]...)
	return codec.AppendTrimmed(buf, e.Value[:])
}

func (e *StorageEntry) UnmarshalCompact(data []byte) error {
	*e = StorageEntry{}
	d := codec.NewDecoder(data)
	if err := d.Fixed(e.Key[:]); err != nil {
		return err
	}
	return d.Trimmed(e.Value[:], d.Remaining())
}

// AccountBeforeTx records the state of an account before a block changed
// it. Info is nil when the account did not exist.
//
// Compact layout: Address (20 bytes) ++ compact Account if present.
type AccountBeforeTx struct {
	Address Address
	Info    *Account
}

func (c *AccountBeforeTx) MarshalCompact(buf []byte) []byte {
	buf = append(buf, c.Address[:]...)
	if c.Info != nil {
		buf = c.Info.MarshalCompact(buf)
	}
	return buf
}

func (c *AccountBeforeTx) UnmarshalCompact(data []byte) error {
	*c = AccountBeforeTx{}
	d := codec.NewDecoder(data)
	if err := d.Fixed(c.Address[:]); err != nil {
		return err
	}
	if d.Remaining() == 0 {
		return nil
	}
	c.Info = new(Account)
	if err := c.Info.decode(&d); err != nil {
		return err
	}
	return d.Finish()
}
