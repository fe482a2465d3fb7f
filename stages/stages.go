// Package stages persists the progress of a staged sync pipeline: one
// checkpoint per stage, saved in the same transaction as the stage's work.
package stages

// StageID names a pipeline stage. It is the key of the checkpoint table.
type StageID string

// The stages of a node's sync pipeline, in execution order.
const (
	Headers             StageID = "Headers"
	Bodies              StageID = "Bodies"
	SenderRecovery      StageID = "SenderRecovery"
	Execution           StageID = "Execution"
	AccountHashing      StageID = "AccountHashing"
	StorageHashing      StageID = "StorageHashing"
	MerkleExecute       StageID = "MerkleExecute"
	TransactionLookup   StageID = "TransactionLookup"
	IndexAccountHistory StageID = "IndexAccountHistory"
	IndexStorageHistory StageID = "IndexStorageHistory"
	Finish              StageID = "Finish"
)

var AllStages = []StageID{
	Headers,
	Bodies,
	SenderRecovery,
	Execution,
	AccountHashing,
	StorageHashing,
	MerkleExecute,
	TransactionLookup,
	IndexAccountHistory,
	IndexStorageHistory,
	Finish,
}

func (id StageID) String() string {
	return string(id)
}

// IsKnown reports whether id is one of AllStages.
func (id StageID) IsKnown() bool {
	for _, s := range AllStages {
		if s == id {
			return true
		}
	}
	return false
}
