/*
Package stagedb implements typed tables on top of an ordered key-value store
(Bolt by default, LevelDB or an in-memory store otherwise), for a blockchain
node's staged sync pipeline.

We implement:

1. Tables, binding a name to a key codec, a value codec and a duplicate mode.

2. Transactions: many read-only snapshots, one read-write transaction at a time.

3. Cursors, with seeks, walks and DupSort navigation.

Pipeline checkpoints live in package stages, the node's table catalog in
package tables, and the byte-level codecs in package codec.

# Technical Details

**Buckets.**
Every table occupies one bucket. Bolt supports them natively; on LevelDB a
bucket is the key prefix `name\x00`.

**Schema.**
Tables are registered into a Schema from package-level variable initializers.
Opening a DB seals the schema and creates the missing buckets. Using a table
from another schema fails with ErrSchemaMismatch.

**Write generations.**
Engine cursors do not survive writes. Every write bumps the transaction's
generation; a cursor that sees a newer generation re-seeks to the key it was
on before moving, so deleting under a cursor continues with the next entry.

## Binary encoding

**Keys** are order-preserving encodings (see package codec). DupSort tables
need a fixed-width key.

**Single values**: the value codec's output, optionally compressed.

**Compressed values**: one method byte (0 none, 1 snappy, 4 lz4, 7 zstd),
then the payload. Values shorter than the table's threshold, or that do not
shrink, are stored with method 0.

**DupSort values**: the value encoding starts with a fixed-width sub-key. The
engine key is key ++ sub-key and the engine value is the rest of the encoding,
so the engine orders values of one key by sub-key.
*/
package stagedb
