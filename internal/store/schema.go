package store

import (
	"fmt"
	"strings"
)

// ColumnType is the primitive type of a schema column.
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeNumber ColumnType = "number"
	TypeBool   ColumnType = "bool"
)

// Column describes one business column of a table. The id column and the
// sync metadata columns (_changed, _status) are implicit on every table and
// must not appear here.
type Column struct {
	Name     string
	Type     ColumnType
	Optional bool
	Default  any  // applied to pre-existing rows when added by migration
	Indexed  bool // eligible for query predicates
}

// TableSchema describes one table: its name and ordered column definitions.
type TableSchema struct {
	Name    string
	Columns []Column
}

// Schema is the full versioned local schema. Version is the schema version
// implied by this code; a store persisted at an older version is migrated
// forward on open.
type Schema struct {
	Version int
	Tables  []TableSchema
}

// Table returns the schema for the named table, or nil if unknown.
func (s Schema) Table(name string) *TableSchema {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames returns the schema's table names in declaration order.
func (s Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Column returns the named column definition, or nil if the table doesn't
// declare it. Unknown stored columns are simply ignored by readers, so a nil
// here is not an error for reads.
func (t *TableSchema) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// sqlType maps a column type to its SQLite storage class.
func sqlType(t ColumnType) string {
	switch t {
	case TypeNumber:
		return "REAL"
	case TypeBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// sqlLiteral renders a default value as a SQL literal.
func sqlLiteral(c Column) string {
	if c.Default == nil {
		switch c.Type {
		case TypeNumber:
			return "0"
		case TypeBool:
			return "0"
		default:
			return "''"
		}
	}
	switch v := c.Default.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// createTableSQL generates the CREATE TABLE statement for a table,
// including the implicit id and sync metadata columns.
func createTableSQL(t TableSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	b.WriteString("    id TEXT PRIMARY KEY,\n")
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "    %s %s", c.Name, sqlType(c.Type))
		if !c.Optional {
			fmt.Fprintf(&b, " NOT NULL DEFAULT %s", sqlLiteral(c))
		}
		b.WriteString(",\n")
	}
	b.WriteString("    _changed INTEGER NOT NULL DEFAULT 0,\n")
	b.WriteString("    _status TEXT NOT NULL DEFAULT 'created'\n")
	b.WriteString(");")
	return b.String()
}

// createIndexSQL generates CREATE INDEX statements for a table's indexed columns.
func createIndexSQL(t TableSchema) []string {
	var stmts []string
	for _, c := range t.Columns {
		if c.Indexed {
			stmts = append(stmts, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s);", t.Name, c.Name, t.Name, c.Name))
		}
	}
	// Every table gets a status index; the sync engine scans by it constantly.
	stmts = append(stmts, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(_status);", t.Name, t.Name))
	return stmts
}

// addColumnSQL generates the ALTER TABLE statement for an additive migration.
// Required columns get an explicit default so pre-existing rows hold a
// well-defined value; optional columns without a default stay NULL.
func addColumnSQL(table string, c Column) string {
	if c.Optional && c.Default == nil {
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", table, c.Name, sqlType(c.Type))
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s NOT NULL DEFAULT %s;",
		table, c.Name, sqlType(c.Type), sqlLiteral(c))
}
