/*
Package codec implements the byte encodings persisted by stagedb tables.

Keys and values have different goals. Key encodings preserve order, so that
a < b exactly when enc(a) < enc(b) bytewise. Value encodings aim for the
smallest deterministic form and never need to sort.

# Compact integers

A compact unsigned integer is big-endian with its leading zero bytes
dropped:

	0   -> (no bytes)
	1   -> 01
	300 -> 01 2c

The length is not stored with the number. A struct records it in a bit-field
header slot; a standalone value takes the entire buffer. A leading zero byte
is rejected, so every number has exactly one encoding. 256-bit numbers use
the same rule with up to 32 bytes (AppendTrimmed).

# Bit-field headers

Struct encodings start with a header built by Bitfield: small fields such as
byte lengths, presence flags and enum tags packed LSB-first into
ceil(bits/8) little-endian bytes. Header bits past the declared width must be
zero; anything else means a different layout and decodes as
ErrUnexpectedVariant.

# Keys

	U64Key       8 bytes big-endian
	U32Key       4 bytes big-endian
	I64Key       8 bytes big-endian, sign bit flipped
	TimeKey      I64Key of Unix nanoseconds
	OrderedU64   length byte ++ compact bytes (0 -> 00, 300 -> 02 01 2c)
	String       raw bytes
	Key[T]       fixed-width types such as hashes and addresses

# Errors

Every decoder returns a *DataError wrapping ErrInvalidLength,
ErrInvalidEncoding or ErrUnexpectedVariant. Decoders never alias their input.
*/
package codec
