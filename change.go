package stagedb

import (
	"fmt"
)

type (
	// Change describes one write of a read-write transaction. It is
	// delivered to Options.OnChange before the transaction commits.
	Change struct {
		table  AnyTable
		op     Op
		rawKey []byte
		rawVal []byte
	}

	Op int
)

const (
	OpNone   Op = 0
	OpPut    Op = 1
	OpDelete Op = 2
	OpClear  Op = 3
)

func (chg *Change) Table() AnyTable {
	return chg.table
}
func (chg *Change) Op() Op {
	return chg.op
}

// RawKey is the engine key. It is empty for OpClear.
func (chg *Change) RawKey() []byte {
	return chg.rawKey
}

// RawValue is the engine value of OpPut.
func (chg *Change) RawValue() []byte {
	return chg.rawVal
}

func (chg *Change) String() string {
	if chg.op == OpClear {
		return fmt.Sprintf("%s %s", chg.op, chg.table.Name())
	}
	return fmt.Sprintf("%s %s/%s", chg.op, chg.table.Name(), chg.table.FormatKey(chg.rawKey))
}

func (v Op) String() string {
	switch v {
	case OpNone:
		return "none"
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	case OpClear:
		return "clear"
	default:
		return fmt.Sprintf("invalid op %d", int(v))
	}
}

func (tx *Tx) notify(tbl AnyTable, op Op, rawKey, rawVal []byte) {
	if tx.db.onChange == nil {
		return
	}
	tx.db.onChange(tx, &Change{table: tbl, op: op, rawKey: rawKey, rawVal: rawVal})
}
