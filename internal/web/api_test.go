package web

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestAPITablesWithoutExecutor(t *testing.T) {
	srv := NewServer(0, nil)
	ts := httptestServer(t, srv)

	status, resp := doJSON(t, http.MethodGet, ts+"/api/tables", nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", status)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("expected error response, got %+v", resp)
	}
}

func TestAPITables(t *testing.T) {
	ts, _ := setupTestServer(t)

	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/tables", nil)
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("Expected success, got %d %+v", status, resp)
	}
	var list TableListResponse
	decodeData(t, resp, &list)
	if len(list.Tables) != 1 || list.Tables[0] != "people" {
		t.Errorf("expected [people], got %v", list.Tables)
	}
}

func TestAPITableSchema(t *testing.T) {
	ts, _ := setupTestServer(t)

	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/tables/people", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", status, resp.Error)
	}
	var schema TableSchemaResponse
	decodeData(t, resp, &schema)

	if schema.PrimaryKey != "ID" || schema.RowCount != 3 {
		t.Errorf("unexpected schema: %+v", schema)
	}
	if len(schema.Columns) != 3 || schema.Columns[2].Type != "Double" || !schema.Columns[0].PrimaryKey {
		t.Errorf("unexpected columns: %+v", schema.Columns)
	}
	if !strings.HasSuffix(schema.Size, " B") {
		t.Errorf("expected byte size, got %q", schema.Size)
	}

	status, resp = doJSON(t, http.MethodGet, ts.URL+"/api/tables/missing", nil)
	if status != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing table, got %d", status)
	}
	if resp.Hint == "" {
		t.Error("expected a hint for missing table")
	}
}

func TestAPICreateAndDropTable(t *testing.T) {
	ts, exec := setupTestServer(t)

	req := CreateTableRequest{
		Name: "orders",
		Columns: []ColumnInfo{
			{Name: "OrderID", Type: "Integer", PrimaryKey: true},
			{Name: "Total", Type: "Double"},
		},
	}
	status, resp := doJSON(t, http.MethodPost, ts.URL+"/api/tables", req)
	if status != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d (%s)", status, resp.Error)
	}
	tbl, err := exec.Database().Table("orders")
	if err != nil {
		t.Fatalf("table not created: %v", err)
	}
	if tbl.Schema.PrimaryKey() != "OrderID" {
		t.Errorf("expected primary key OrderID, got %q", tbl.Schema.PrimaryKey())
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/tables", req)
	if status != http.StatusBadRequest {
		t.Errorf("Expected status 400 for duplicate table, got %d", status)
	}

	status, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/tables/orders", nil)
	if status != http.StatusOK {
		t.Errorf("Expected status 200 for drop, got %d", status)
	}
	if _, err := exec.Database().Table("orders"); err == nil {
		t.Error("expected table to be dropped")
	}
}

func TestAPICreateTableValidation(t *testing.T) {
	ts, _ := setupTestServer(t)

	bad := []CreateTableRequest{
		{Name: "../etc", Columns: []ColumnInfo{{Name: "A", Type: "Integer"}}},
		{Name: "t", Columns: []ColumnInfo{{Name: "has space", Type: "Integer"}}},
		{Name: "t", Columns: []ColumnInfo{{Name: "A", Type: "BLOB"}}},
		{Name: "t", Columns: []ColumnInfo{{Name: "A", Type: "Integer"}}, PrimaryKey: "B"},
	}
	for _, req := range bad {
		status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/tables", req)
		if status != http.StatusBadRequest {
			t.Errorf("%+v: expected status 400, got %d", req, status)
		}
	}
}

func TestAPITableRows(t *testing.T) {
	ts, _ := setupTestServer(t)

	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/tables/people/rows?limit=2", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", status, resp.Error)
	}
	var rows RowsResponse
	decodeData(t, resp, &rows)
	if rows.TotalCount != 3 || len(rows.Rows) != 2 || !rows.HasMore {
		t.Errorf("unexpected page: %+v", rows)
	}

	where := url.QueryEscape(`Score > 2 AND Name != "Cid"`)
	status, resp = doJSON(t, http.MethodGet, ts.URL+"/api/tables/people/rows?columns=Name&where="+where, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", status, resp.Error)
	}
	decodeData(t, resp, &rows)
	if len(rows.Rows) != 1 || rows.Rows[0][0] != "Bob" {
		t.Errorf("expected [[Bob]], got %v", rows.Rows)
	}

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/tables/people/rows?where="+url.QueryEscape("Nope = 1"), nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown column, got %d", status)
	}
}

func TestAPIInsertAndRemoveRows(t *testing.T) {
	ts, exec := setupTestServer(t)

	body := map[string]interface{}{
		"rows": [][]interface{}{{4, "Dee", 4}, {5, "Eve", 5.25}},
	}
	status, resp := doJSON(t, http.MethodPost, ts.URL+"/api/tables/people/rows", body)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", status, resp.Error)
	}
	var count CountResponse
	decodeData(t, resp, &count)
	if count.Count != 2 {
		t.Errorf("expected 2 inserted, got %d", count.Count)
	}

	// Duplicate key and wrong type are rejected.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/tables/people/rows",
		map[string]interface{}{"rows": [][]interface{}{{1, "Dup", 1}}})
	if status != http.StatusBadRequest {
		t.Errorf("Expected status 400 for duplicate key, got %d", status)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/tables/people/rows",
		map[string]interface{}{"rows": [][]interface{}{{6.5, "Bad", 1}}})
	if status != http.StatusBadRequest {
		t.Errorf("Expected status 400 for Double in Integer column, got %d", status)
	}

	status, resp = doJSON(t, http.MethodDelete, ts.URL+"/api/tables/people/rows?where="+url.QueryEscape("ID >= 4"), nil)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", status, resp.Error)
	}
	decodeData(t, resp, &count)
	if count.Count != 2 {
		t.Errorf("expected 2 removed, got %d", count.Count)
	}

	result, err := exec.ExecuteString("Select * FROM people")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 3 {
		t.Errorf("expected 3 rows left, got %d", len(result.Rows))
	}
}

func TestAPIExplain(t *testing.T) {
	ts, _ := setupTestServer(t)

	where := url.QueryEscape(`ID = 2 OR Name = "Cid"`)
	status, resp := doJSON(t, http.MethodGet, ts.URL+"/api/tables/people/explain?where="+where, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", status, resp.Error)
	}
	var plan PlanResponse
	decodeData(t, resp, &plan)

	ops := make([]string, len(plan.Steps))
	for i, s := range plan.Steps {
		ops[i] = s.Operation
	}
	if strings.Join(ops, " ") != "INDEX_LOOKUP FULL_TABLE_SCAN UNION" {
		t.Errorf("unexpected steps %v", ops)
	}
}

func TestAPIQuery(t *testing.T) {
	ts, _ := setupTestServer(t)

	status, resp := doJSON(t, http.MethodPost, ts.URL+"/api/query",
		QueryRequest{Command: "Select Name FROM people WHERE ID <= 2 OrderBy Name"})
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", status, resp.Error)
	}
	var qr QueryResponse
	decodeData(t, resp, &qr)
	if qr.RowCount != 2 || qr.Rows[0][0] != "Ann" {
		t.Errorf("unexpected result: %+v", qr)
	}

	status, resp = doJSON(t, http.MethodPost, ts.URL+"/api/query",
		QueryRequest{Command: "Explain Select * FROM people WHERE ID = 1"})
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", status, resp.Error)
	}
	decodeData(t, resp, &qr)
	if qr.Plan == nil || qr.Plan.Steps[0].Operation != "INDEX_LOOKUP" {
		t.Errorf("expected index lookup plan, got %+v", qr.Plan)
	}

	tests := []struct {
		command string
		status  int
	}{
		{"", http.StatusBadRequest},
		{"Select * FROM", http.StatusBadRequest},
		{"Quit", http.StatusBadRequest},
		{"Select * FROM missing", http.StatusNotFound},
		{"Select * FROM people WHERE NOT ID = 1", http.StatusNotImplemented},
	}
	for _, tt := range tests {
		status, resp := doJSON(t, http.MethodPost, ts.URL+"/api/query", QueryRequest{Command: tt.command})
		if status != tt.status {
			t.Errorf("%q: expected status %d, got %d (%s)", tt.command, tt.status, status, resp.Error)
		}
	}
}
