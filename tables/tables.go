// Package tables is the node's table catalog. Every table lives in Schema,
// which is what the node opens its database with.
//
// Layouts (keys are order-preserving, values use the chain package's
// compact encodings):
//
//	CanonicalHeaders        block_num_u64 -> header hash
//	HeaderNumbers           header hash -> compact block_num
//	Headers                 block_num_u64 -> header
//	BlockBodyIndices        block_num_u64 -> first tx_num + tx count
//	Transactions            tx_num_u64 -> signed tx bytes, snappy
//	TransactionHashNumbers  tx hash -> compact tx_num
//	Receipts                tx_num_u64 -> receipt, zstd
//	PlainAccountState       address -> account
//	PlainStorageState       address -> slot ++ value          (DupSort, sub-key = slot)
//	AccountChangeSets       block_num_u64 -> address ++ account (DupSort, sub-key = address)
//	StageCheckpoints        stage id -> checkpoint
package tables

import (
	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/chain"
	"github.com/andreyvit/stagedb/codec"
	"github.com/andreyvit/stagedb/stages"
)

var Schema = stagedb.NewSchema()

var (
	CanonicalHeaders = stagedb.DefineTable(Schema, "CanonicalHeaders", codec.U64Key[chain.BlockNumber](), codec.Compact[chain.Hash]())
	HeaderNumbers    = stagedb.DefineTable(Schema, "HeaderNumbers", codec.Key[chain.Hash](), codec.CompactU64[chain.BlockNumber]())
	Headers          = stagedb.DefineTable(Schema, "Headers", codec.U64Key[chain.BlockNumber](), codec.Compact[chain.Header]())
	BlockBodyIndices = stagedb.DefineTable(Schema, "BlockBodyIndices", codec.U64Key[chain.BlockNumber](), codec.Compact[chain.BodyIndices]())

	Transactions           = stagedb.DefineTable[chain.TxNumber, []byte](Schema, "Transactions", codec.U64Key[chain.TxNumber](), codec.Bytes(), stagedb.Snappy)
	TransactionHashNumbers = stagedb.DefineTable(Schema, "TransactionHashNumbers", codec.Key[chain.Hash](), codec.CompactU64[chain.TxNumber]())
	Receipts               = stagedb.DefineTable(Schema, "Receipts", codec.U64Key[chain.TxNumber](), codec.Compact[chain.Receipt](), stagedb.Zstd)

	PlainAccountState = stagedb.DefineTable(Schema, "PlainAccountState", codec.Key[chain.Address](), codec.Compact[chain.Account]())
	PlainStorageState = stagedb.DefineDupTable(Schema, "PlainStorageState", codec.Key[chain.Address](), codec.Compact[chain.StorageEntry](), chain.HashLength)
	AccountChangeSets = stagedb.DefineDupTable(Schema, "AccountChangeSets", codec.U64Key[chain.BlockNumber](), codec.Compact[chain.AccountBeforeTx](), chain.AddressLength)

	Stages = stages.Define(Schema)
)
