// Package chain defines the node's persisted domain types together with
// their key and compact value encodings.
package chain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/andreyvit/stagedb/codec"
)

type (
	// BlockNumber is the height of a block.
	BlockNumber uint64

	// TxNumber is the global sequence number of a transaction across all blocks.
	TxNumber uint64

	Hash    [32]byte
	Address [20]byte

	// U256 is a 256-bit unsigned number stored big-endian.
	U256 [32]byte
)

const (
	HashLength    = 32
	AddressLength = 20
)

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	return parseHex(h[:], text)
}

func (h Hash) MarshalKey(buf []byte) []byte {
	return append(buf, h[:]...)
}

func (h *Hash) UnmarshalKey(data []byte) error {
	return decodeFixed(h[:], data, "hash")
}

func (Hash) KeyWidth() int {
	return HashLength
}

func (h Hash) MarshalCompact(buf []byte) []byte {
	return h.MarshalKey(buf)
}

func (h *Hash) UnmarshalCompact(data []byte) error {
	return h.UnmarshalKey(data)
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	return parseHex(a[:], text)
}

func (a Address) MarshalKey(buf []byte) []byte {
	return append(buf, a[:]...)
}

func (a *Address) UnmarshalKey(data []byte) error {
	return decodeFixed(a[:], data, "address")
}

func (Address) KeyWidth() int {
	return AddressLength
}

func U256From(v uint64) U256 {
	var u U256
	binary.BigEndian.PutUint64(u[24:], v)
	return u
}

// U256FromBig panics if b is negative or wider than 256 bits.
func U256FromBig(b *big.Int) U256 {
	if b.Sign() < 0 || b.BitLen() > 256 {
		panic(fmt.Errorf("%v does not fit into U256", b))
	}
	var u U256
	b.FillBytes(u[:])
	return u
}

func (u U256) Big() *big.Int {
	return new(big.Int).SetBytes(u[:])
}

func (u U256) IsZero() bool {
	return u == U256{}
}

func (u U256) String() string {
	return u.Big().String()
}

func (u U256) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *U256) UnmarshalText(text []byte) error {
	b, ok := new(big.Int).SetString(string(text), 0)
	if !ok || b.Sign() < 0 || b.BitLen() > 256 {
		return fmt.Errorf("invalid U256 %q", text)
	}
	*u = U256FromBig(b)
	return nil
}

// MarshalCompact writes the number without leading zero bytes.
func (u U256) MarshalCompact(buf []byte) []byte {
	return codec.AppendTrimmed(buf, u[:])
}

func (u *U256) UnmarshalCompact(data []byte) error {
	return codec.DecodeTrimmed(u[:], data)
}

// BlockNumHash is a block number followed by a block hash. Keys sort by
// number first.
type BlockNumHash struct {
	Number BlockNumber
	Hash   Hash
}

func (k BlockNumHash) MarshalKey(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint64(buf, uint64(k.Number))
	return append(buf, k.Hash[:]...)
}

func (k *BlockNumHash) UnmarshalKey(data []byte) error {
	if len(data) != 8+HashLength {
		return codec.DataErrf(data, 0, codec.ErrInvalidLength, "block num+hash key must be %d bytes", 8+HashLength)
	}
	k.Number = BlockNumber(binary.BigEndian.Uint64(data))
	copy(k.Hash[:], data[8:])
	return nil
}

func (BlockNumHash) KeyWidth() int {
	return 8 + HashLength
}

func (k BlockNumHash) String() string {
	return fmt.Sprintf("%d/%v", k.Number, k.Hash)
}

func decodeFixed(dst []byte, data []byte, what string) error {
	if len(data) != len(dst) {
		return codec.DataErrf(data, 0, codec.ErrInvalidLength, "%s must be %d bytes", what, len(dst))
	}
	copy(dst, data)
	return nil
}

func parseHex(dst []byte, text []byte) error {
	s := string(text)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if hex.DecodedLen(len(s)) != len(dst) {
		return fmt.Errorf("expected %d hex bytes, got %q", len(dst), text)
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}
