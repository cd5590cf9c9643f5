// Package executor runs parsed commands against an open database.
//
// EDUCATIONAL NOTES:
// ------------------
// The executor is the component that actually runs commands.
// It takes a statement from the parser and:
// 1. Validates it against the catalog (table exists, values fit columns)
// 2. Compiles any WHERE condition against the table schema
// 3. Executes it through the table layer and returns a Result
//
// There is no global database. An Executor is a session: it owns one open
// catalog.Database and every command runs against it. The shell, the HTTP
// server and the tests each create their own.

package executor

import (
	"fmt"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/catalog"
	"github.com/cabewaldrop/pagedb/internal/sql/parser"
	"github.com/cabewaldrop/pagedb/internal/sql/planner"
	"github.com/cabewaldrop/pagedb/internal/storage"
	"github.com/cabewaldrop/pagedb/internal/table"
)

// Result represents the result of executing a command.
type Result struct {
	Columns  []string
	Rows     [][]storage.Value
	RowCount int
	Message  string
	Plan     *planner.QueryPlan // set by Explain
	Quit     bool               // set by Quit
}

// String formats the result for display.
func (r *Result) String() string {
	if r.Message != "" {
		return r.Message
	}

	if len(r.Rows) == 0 {
		return "(no rows)"
	}

	// Calculate column widths
	widths := make([]int, len(r.Columns))
	for i, col := range r.Columns {
		widths[i] = len(col)
	}
	for _, row := range r.Rows {
		for i, val := range row {
			if n := len(val.String()); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	border := func() {
		sb.WriteString("+")
		for _, w := range widths {
			sb.WriteString(strings.Repeat("-", w+2))
			sb.WriteString("+")
		}
		sb.WriteString("\n")
	}

	border()
	sb.WriteString("|")
	for i, col := range r.Columns {
		fmt.Fprintf(&sb, " %-*s |", widths[i], col)
	}
	sb.WriteString("\n")
	border()
	for _, row := range r.Rows {
		sb.WriteString("|")
		for i, val := range row {
			fmt.Fprintf(&sb, " %-*s |", widths[i], val.String())
		}
		sb.WriteString("\n")
	}
	border()
	fmt.Fprintf(&sb, "(%d rows)\n", len(r.Rows))

	return sb.String()
}

// Executor is a session over one open database.
type Executor struct {
	db      *catalog.Database
	planner *planner.Planner
}

// New creates an Executor for db.
func New(db *catalog.Database) *Executor {
	return &Executor{
		db:      db,
		planner: planner.New(),
	}
}

// Open opens (or creates) the database called name in dir and returns a
// session over it.
func Open(dir, name string, opts table.Options) (*Executor, error) {
	db, err := catalog.Open(dir, name)
	if err != nil {
		return nil, err
	}
	db.TableOptions = opts
	return New(db), nil
}

// Database returns the session's database.
func (e *Executor) Database() *catalog.Database { return e.db }

// ExecuteString parses and runs one command.
func (e *Executor) ExecuteString(input string) (*Result, error) {
	stmt, err := parser.ParseString(input)
	if err != nil {
		return nil, err
	}
	return e.Execute(stmt)
}

// Execute runs a statement and returns the result.
func (e *Executor) Execute(stmt parser.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStatement:
		return e.executeCreateTable(s)
	case *parser.DropTableStatement:
		return e.executeDropTable(s)
	case *parser.ListTablesStatement:
		return e.executeListTables()
	case *parser.TableInfoStatement:
		return e.executeTableInfo(s)
	case *parser.InsertStatement:
		return e.executeInsert(s)
	case *parser.SelectStatement:
		return e.executeSelect(s)
	case *parser.RemoveStatement:
		return e.executeRemove(s)
	case *parser.ExplainStatement:
		tableName, where := s.Target()
		return e.Explain(tableName, where)
	case *parser.QuitStatement:
		return &Result{Message: "Bye", Quit: true}, nil
	default:
		return nil, fmt.Errorf("%w: statement type %T", storage.ErrUnsupported, stmt)
	}
}

// Explain returns the plan for condition on a table without running it.
//
// EDUCATIONAL NOTE:
// -----------------
// EXPLAIN shows how the database will find the rows a condition selects
// without actually reading them. Here that means which clauses can use the
// primary key index and which force a scan of every page.
func (e *Executor) Explain(tableName, condition string) (*Result, error) {
	tbl, err := e.db.Table(tableName)
	if err != nil {
		return nil, err
	}
	plan, err := e.planner.Plan(tbl, condition)
	if err != nil {
		return nil, err
	}
	return &Result{Message: plan.String(), Plan: plan}, nil
}

// executeCreateTable handles CreateTable and CREATE TABLE.
func (e *Executor) executeCreateTable(stmt *parser.CreateTableStatement) (*Result, error) {
	cols := make([]table.Column, len(stmt.Columns))
	for i, c := range stmt.Columns {
		cols[i] = table.Column{Name: c.Name, Type: c.Type}
	}
	schema, err := table.NewSchema(cols, stmt.PrimaryKey)
	if err != nil {
		return nil, err
	}
	if _, err := e.db.CreateTable(stmt.Name, schema); err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("Table '%s' created", stmt.Name),
	}, nil
}

// executeDropTable handles DropTable.
func (e *Executor) executeDropTable(stmt *parser.DropTableStatement) (*Result, error) {
	if err := e.db.DropTable(stmt.Name); err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("Table '%s' dropped", stmt.Name),
	}, nil
}

func (e *Executor) executeListTables() (*Result, error) {
	names := e.db.Tables()
	if len(names) == 0 {
		return &Result{Message: "No tables"}, nil
	}
	rows := make([][]storage.Value, len(names))
	for i, name := range names {
		rows[i] = []storage.Value{storage.NewText(name)}
	}
	return &Result{Columns: []string{"Table"}, Rows: rows, RowCount: len(rows)}, nil
}

// executeTableInfo describes a table's schema and size.
func (e *Executor) executeTableInfo(stmt *parser.TableInfoStatement) (*Result, error) {
	tbl, err := e.db.Table(stmt.Name)
	if err != nil {
		return nil, err
	}
	stats, err := tbl.Stats()
	if err != nil {
		return nil, err
	}

	prop := func(name, value string) []storage.Value {
		return []storage.Value{storage.NewText(name), storage.NewText(value)}
	}
	rows := [][]storage.Value{
		prop("Table", tbl.Name),
		prop("Schema", tbl.Schema.String()),
		prop("Rows", fmt.Sprintf("%d", stats.Rows)),
		prop("Pages", fmt.Sprintf("%d (capacity %d)", stats.Pages, tbl.PageCapacity())),
		prop("Size", FormatBytes(stats.Bytes)),
	}
	if idx := tbl.Index(); idx != nil {
		rows = append(rows, prop("Index", fmt.Sprintf("%s (order %d, %d keys)", idx.Column, idx.Tree().Order(), idx.Len())))
	}
	return &Result{Columns: []string{"Property", "Value"}, Rows: rows, RowCount: len(rows)}, nil
}

// FormatBytes renders a byte count as "N B" below one kilobyte and
// "N.NN KB" from there on.
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f KB", float64(n)/1024)
}

// executeInsert handles Insert. Rows are inserted one at a time and are
// not rolled back when a later row fails.
func (e *Executor) executeInsert(stmt *parser.InsertStatement) (*Result, error) {
	tbl, err := e.db.Table(stmt.Table)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]storage.Value, 0, len(stmt.Rows))
	var convErr error
	for i, lits := range stmt.Rows {
		row, err := bindRow(tbl.Schema, lits)
		if err != nil {
			convErr = fmt.Errorf("row %d: %w", i+1, err)
			break
		}
		rows = append(rows, row)
	}

	n, err := e.db.Insert(stmt.Table, rows)
	if err == nil {
		err = convErr
	}
	if err != nil {
		return nil, fmt.Errorf("inserted %d row(s) before failing: %w", n, err)
	}
	return &Result{
		RowCount: n,
		Message:  fmt.Sprintf("%d row(s) inserted", n),
	}, nil
}

// bindRow types a row of literals against the schema's columns.
func bindRow(schema *table.Schema, lits []parser.Literal) (map[string]storage.Value, error) {
	if len(lits) != len(schema.Columns) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", storage.ErrSchemaViolation, len(schema.Columns), len(lits))
	}
	row := make(map[string]storage.Value, len(lits))
	for i, col := range schema.Columns {
		v, err := lits[i].Value(col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		row[col.Name] = v
	}
	return row, nil
}

// executeSelect handles Select.
func (e *Executor) executeSelect(stmt *parser.SelectStatement) (*Result, error) {
	tbl, err := e.db.Table(stmt.From)
	if err != nil {
		return nil, err
	}
	records, err := e.db.Select(stmt.From, stmt.Where, table.SelectOptions{
		Columns:  stmt.Columns,
		OrderBy:  stmt.OrderBy,
		Distinct: stmt.Distinct,
	})
	if err != nil {
		return nil, err
	}

	columns := stmt.Columns
	if len(columns) == 0 {
		columns = tbl.Schema.Names()
	}
	rows := make([][]storage.Value, len(records))
	for i, r := range records {
		rows[i] = r.Values()
	}
	return &Result{Columns: columns, Rows: rows, RowCount: len(rows)}, nil
}

// executeRemove handles Remove.
func (e *Executor) executeRemove(stmt *parser.RemoveStatement) (*Result, error) {
	n, err := e.db.Remove(stmt.From, stmt.Where)
	if err != nil {
		return nil, err
	}
	return &Result{
		RowCount: n,
		Message:  fmt.Sprintf("%d row(s) removed", n),
	}, nil
}

// Close persists every table's metadata.
func (e *Executor) Close() error {
	for _, name := range e.db.Tables() {
		tbl, err := e.db.Table(name)
		if err != nil {
			return err
		}
		if err := tbl.Save(); err != nil {
			return err
		}
	}
	return e.db.Save()
}
