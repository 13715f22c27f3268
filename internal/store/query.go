package store

import (
	"fmt"
	"strings"
)

// Op is a predicate comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Cond is one predicate condition. Conditions compose conjunctively.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Cond  { return Cond{Column: column, Op: OpEq, Value: value} }
func Gt(column string, value any) Cond  { return Cond{Column: column, Op: OpGt, Value: value} }
func Gte(column string, value any) Cond { return Cond{Column: column, Op: OpGte, Value: value} }
func Lt(column string, value any) Cond  { return Cond{Column: column, Op: OpLt, Value: value} }
func Lte(column string, value any) Cond { return Cond{Column: column, Op: OpLte, Value: value} }

// QueryOptions controls ordering and paging.
type QueryOptions struct {
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// Query returns live records matching every condition. Predicates are only
// accepted on indexed columns (plus id); tombstones never appear in results.
func (tx *Tx) Query(table string, conds []Cond, opts QueryOptions) ([]Record, error) {
	t, err := tx.table(table)
	if err != nil {
		return nil, err
	}

	query, args, err := buildQuerySQL(t, conds, opts)
	if err != nil {
		return nil, err
	}

	rows, err := tx.tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	return scanRecords(rows, t)
}

func buildQuerySQL(t *TableSchema, conds []Cond, opts QueryOptions) (string, []any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s WHERE _status != ?", t.Name)
	args := []any{string(StatusDeleted)}

	for _, c := range conds {
		if err := validatePredicateColumn(t, c.Column); err != nil {
			return "", nil, err
		}
		switch c.Op {
		case OpEq, OpGt, OpGte, OpLt, OpLte:
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
		}

		var v any = c.Value
		if c.Column != "id" {
			enc, err := encodeValue(c.Value, t.Column(c.Column).Type)
			if err != nil {
				return "", nil, fmt.Errorf("predicate %s.%s: %w", t.Name, c.Column, err)
			}
			v = enc
		}
		fmt.Fprintf(&b, " AND %s %s ?", c.Column, c.Op)
		args = append(args, v)
	}

	if opts.SortBy != "" {
		if t.Column(opts.SortBy) == nil && opts.SortBy != "id" {
			return "", nil, fmt.Errorf("unknown sort column %s.%s", t.Name, opts.SortBy)
		}
		dir := "ASC"
		if opts.SortDesc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", opts.SortBy, dir)
	} else {
		b.WriteString(" ORDER BY id ASC")
	}

	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
		if opts.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", opts.Offset)
		}
	} else if opts.Offset > 0 {
		fmt.Fprintf(&b, " LIMIT -1 OFFSET %d", opts.Offset)
	}

	return b.String(), args, nil
}

func validatePredicateColumn(t *TableSchema, name string) error {
	if name == "id" {
		return nil
	}
	c := t.Column(name)
	if c == nil {
		return fmt.Errorf("unknown column %s.%s", t.Name, name)
	}
	if !c.Indexed {
		return fmt.Errorf("column %s.%s is not indexed; predicates are restricted to indexed columns", t.Name, name)
	}
	return nil
}
