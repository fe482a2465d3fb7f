package stagedb

import (
	"fmt"
	"strings"
)

// Schema is a registry of tables. It is filled at process start, usually
// from package-level variable initializers, and becomes read-only once a
// DB is opened with it.
type Schema struct {
	tables            []AnyTable
	tablesByLowerName map[string]AnyTable
	sealed            bool
}

func NewSchema() *Schema {
	return &Schema{
		tablesByLowerName: make(map[string]AnyTable),
	}
}

// Tables returns all tables in registration order.
func (scm *Schema) Tables() []AnyTable {
	return append([]AnyTable(nil), scm.tables...)
}

// TableNamed finds a table by case-insensitive name, or returns nil.
func (scm *Schema) TableNamed(name string) AnyTable {
	return scm.tablesByLowerName[strings.ToLower(name)]
}

func (scm *Schema) IsSealed() bool {
	return scm.sealed
}

func (scm *Schema) addTable(tbl AnyTable) int {
	name := tbl.Name()
	if scm.sealed {
		panic(fmt.Errorf("cannot add table %s: schema is already in use by an open database", name))
	}
	if name == "" {
		panic("table name cannot be empty")
	}
	if strings.IndexByte(name, 0) >= 0 {
		panic(fmt.Errorf("table name %q contains a NUL byte", name))
	}
	lower := strings.ToLower(name)
	if scm.tablesByLowerName[lower] != nil {
		panic(fmt.Errorf("duplicate table name %s", name))
	}
	scm.tablesByLowerName[lower] = tbl
	scm.tables = append(scm.tables, tbl)
	return len(scm.tables) - 1
}

func (scm *Schema) seal() {
	scm.sealed = true
}

// TableName returns the name a table is stored under.
func TableName(tbl AnyTable) string {
	return tbl.Name()
}
