// Package web provides the HTTP server over a database session.
//
// This file contains the JSON API endpoints for programmatic access.

package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cabewaldrop/pagedb/internal/sql/executor"
	"github.com/cabewaldrop/pagedb/internal/sql/parser"
	"github.com/cabewaldrop/pagedb/internal/storage"
)

// ============================================================================
// API Response Types
// ============================================================================

// APIResponse wraps all API responses with success/error info.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Hint    string      `json:"hint,omitempty"`
}

// TableListResponse contains the list of tables.
type TableListResponse struct {
	Tables []string `json:"tables"`
}

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key"`
}

// TableSchemaResponse describes a table's structure and size.
type TableSchemaResponse struct {
	Name       string       `json:"name"`
	Columns    []ColumnInfo `json:"columns"`
	PrimaryKey string       `json:"primary_key,omitempty"`
	RowCount   int          `json:"row_count"`
	Pages      int32        `json:"pages"`
	Bytes      int64        `json:"bytes"`
	Size       string       `json:"size"`
}

// CreateTableRequest is the body of POST /api/tables.
type CreateTableRequest struct {
	Name       string       `json:"name"`
	Columns    []ColumnInfo `json:"columns"`
	PrimaryKey string       `json:"primary_key,omitempty"`
}

// RowsResponse contains paginated row data.
type RowsResponse struct {
	Columns    []string        `json:"columns"`
	Rows       [][]interface{} `json:"rows"`
	TotalCount int             `json:"total_count"`
	Offset     int             `json:"offset"`
	Limit      int             `json:"limit"`
	HasMore    bool            `json:"has_more"`
}

// InsertRequest is the body of POST /api/tables/{name}/rows. Values are
// given in schema column order.
type InsertRequest struct {
	Rows [][]interface{} `json:"rows"`
}

// CountResponse reports how many rows a write touched.
type CountResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// QueryRequest is the body for command execution.
type QueryRequest struct {
	Command string `json:"command"`
}

// QueryResponse contains command results.
type QueryResponse struct {
	Columns  []string        `json:"columns,omitempty"`
	Rows     [][]interface{} `json:"rows,omitempty"`
	RowCount int             `json:"row_count"`
	Message  string          `json:"message,omitempty"`
	Plan     *PlanResponse   `json:"plan,omitempty"`
}

// ============================================================================
// Helper Functions
// ============================================================================

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful API response.
func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error API response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   message,
		Hint:    GetErrorHint(message),
	})
}

// writeExecError reports a failed command with a status matching its kind.
func writeExecError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// valueToInterface converts a storage.Value to a JSON-serializable value.
func valueToInterface(v storage.Value) interface{} {
	switch v.Kind() {
	case storage.KindInteger:
		return v.Int()
	case storage.KindDouble:
		return v.Float()
	default:
		return v.Text()
	}
}

func rowsToInterface(rows [][]storage.Value) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = make([]interface{}, len(row))
		for j, val := range row {
			out[i][j] = valueToInterface(val)
		}
	}
	return out
}

// jsonLiteral turns a decoded JSON value into an insert literal. Numbers
// must have been decoded with UseNumber.
func jsonLiteral(v interface{}) (parser.Literal, error) {
	switch val := v.(type) {
	case json.Number:
		s := val.String()
		if strings.ContainsAny(s, ".eE") {
			return parser.Literal{Kind: parser.LiteralDouble, Text: s}, nil
		}
		return parser.Literal{Kind: parser.LiteralInteger, Text: s}, nil
	case string:
		return parser.Literal{Kind: parser.LiteralString, Text: val}, nil
	}
	return parser.Literal{}, fmt.Errorf("%w: unsupported JSON value %v", storage.ErrSchemaViolation, v)
}

// pagination reads limit and offset query parameters.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// selectFromRequest builds a Select from the query string:
// ?where=...&columns=a,b&order_by=a&distinct=true
func selectFromRequest(r *http.Request, tableName string) *parser.SelectStatement {
	q := r.URL.Query()
	stmt := &parser.SelectStatement{
		From:     tableName,
		Where:    q.Get("where"),
		OrderBy:  q.Get("order_by"),
		Distinct: q.Get("distinct") == "true",
	}
	if cols := q.Get("columns"); cols != "" {
		for _, c := range strings.Split(cols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				stmt.Columns = append(stmt.Columns, c)
			}
		}
	}
	return stmt
}

// ============================================================================
// API Handlers
// ============================================================================

// handleAPITables returns a list of all tables.
// GET /api/tables
func (s *Server) handleAPITables(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, TableListResponse{Tables: GetExecutor(r).Database().Tables()})
}

// handleAPICreateTable creates a table.
// POST /api/tables
func (s *Server) handleAPICreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !IsValidIdentifier(req.Name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid table name %q", req.Name))
		return
	}

	stmt := &parser.CreateTableStatement{Name: req.Name, PrimaryKey: req.PrimaryKey}
	for _, col := range req.Columns {
		if !IsValidIdentifier(col.Name) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid column name %q", col.Name))
			return
		}
		kind, ok := ParseColumnType(col.Type)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid column type %q", col.Type))
			return
		}
		stmt.Columns = append(stmt.Columns, parser.ColumnDefinition{Name: col.Name, Type: kind})
		if col.PrimaryKey && stmt.PrimaryKey == "" {
			stmt.PrimaryKey = col.Name
		}
	}

	exec := GetExecutor(r)
	if _, err := exec.Execute(stmt); err != nil {
		writeExecError(w, err)
		return
	}
	schema, err := describeTable(exec, req.Name)
	if err != nil {
		writeExecError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: schema})
}

// describeTable builds the schema response for a table.
func describeTable(exec *executor.Executor, name string) (*TableSchemaResponse, error) {
	tbl, err := exec.Database().Table(name)
	if err != nil {
		return nil, err
	}
	stats, err := tbl.Stats()
	if err != nil {
		return nil, err
	}

	pk := tbl.Schema.PrimaryKey()
	columns := make([]ColumnInfo, len(tbl.Schema.Columns))
	for i, col := range tbl.Schema.Columns {
		columns[i] = ColumnInfo{
			Name:       col.Name,
			Type:       col.Type.String(),
			PrimaryKey: col.Name == pk,
		}
	}
	return &TableSchemaResponse{
		Name:       tbl.Name,
		Columns:    columns,
		PrimaryKey: pk,
		RowCount:   stats.Rows,
		Pages:      stats.Pages,
		Bytes:      stats.Bytes,
		Size:       executor.FormatBytes(stats.Bytes),
	}, nil
}

// handleAPITableSchema returns the schema for a specific table.
// GET /api/tables/{name}
func (s *Server) handleAPITableSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := describeTable(GetExecutor(r), chi.URLParam(r, "name"))
	if err != nil {
		writeExecError(w, err)
		return
	}
	writeSuccess(w, schema)
}

// handleAPIDropTable drops a table.
// DELETE /api/tables/{name}
func (s *Server) handleAPIDropTable(w http.ResponseWriter, r *http.Request) {
	result, err := GetExecutor(r).Execute(&parser.DropTableStatement{Name: chi.URLParam(r, "name")})
	if err != nil {
		writeExecError(w, err)
		return
	}
	writeSuccess(w, CountResponse{Message: result.Message})
}

// handleAPITableRows returns paginated rows from a table.
// GET /api/tables/{name}/rows?where=...&limit=50&offset=0
func (s *Server) handleAPITableRows(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	result, err := GetExecutor(r).Execute(selectFromRequest(r, chi.URLParam(r, "name")))
	if err != nil {
		writeExecError(w, err)
		return
	}

	total := len(result.Rows)
	start := offset
	end := offset + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	writeSuccess(w, RowsResponse{
		Columns:    result.Columns,
		Rows:       rowsToInterface(result.Rows[start:end]),
		TotalCount: total,
		Offset:     offset,
		Limit:      limit,
		HasMore:    end < total,
	})
}

// handleAPIInsertRows inserts rows given in schema column order.
// POST /api/tables/{name}/rows
func (s *Server) handleAPIInsertRows(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req InsertRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "rows field is required")
		return
	}

	stmt := &parser.InsertStatement{Table: chi.URLParam(r, "name")}
	for i, row := range req.Rows {
		lits := make([]parser.Literal, len(row))
		for j, v := range row {
			lit, err := jsonLiteral(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("row %d: %v", i+1, err))
				return
			}
			lits[j] = lit
		}
		stmt.Rows = append(stmt.Rows, lits)
	}

	result, err := GetExecutor(r).Execute(stmt)
	if err != nil {
		writeExecError(w, err)
		return
	}
	writeSuccess(w, CountResponse{Count: result.RowCount, Message: result.Message})
}

// handleAPIRemoveRows removes the rows matching ?where=. Without a
// condition nothing is removed.
// DELETE /api/tables/{name}/rows?where=...
func (s *Server) handleAPIRemoveRows(w http.ResponseWriter, r *http.Request) {
	stmt := &parser.RemoveStatement{
		From:  chi.URLParam(r, "name"),
		Where: r.URL.Query().Get("where"),
	}
	result, err := GetExecutor(r).Execute(stmt)
	if err != nil {
		writeExecError(w, err)
		return
	}
	writeSuccess(w, CountResponse{Count: result.RowCount, Message: result.Message})
}

// handleAPIExplain returns the plan for ?where= on a table.
// GET /api/tables/{name}/explain?where=...
func (s *Server) handleAPIExplain(w http.ResponseWriter, r *http.Request) {
	result, err := GetExecutor(r).Explain(chi.URLParam(r, "name"), r.URL.Query().Get("where"))
	if err != nil {
		writeExecError(w, err)
		return
	}
	writeSuccess(w, NewPlanResponse(result.Plan))
}

// handleAPIQuery executes an arbitrary command.
// POST /api/query
func (s *Server) handleAPIQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, "command field is required")
		return
	}

	stmt, err := parser.ParseString(req.Command)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := stmt.(*parser.QuitStatement); ok {
		writeError(w, http.StatusBadRequest, "Quit is only available in the shell")
		return
	}

	result, err := GetExecutor(r).Execute(stmt)
	if err != nil {
		writeExecError(w, err)
		return
	}

	resp := QueryResponse{
		RowCount: result.RowCount,
		Message:  result.Message,
	}
	if len(result.Columns) > 0 {
		resp.Columns = result.Columns
		resp.Rows = rowsToInterface(result.Rows)
	}
	if result.Plan != nil {
		resp.Plan = NewPlanResponse(result.Plan)
	}
	writeSuccess(w, resp)
}
