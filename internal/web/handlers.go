package web

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/cabewaldrop/pagedb/internal/sql/parser"
)

// indexPage holds data for rendering the index template.
type indexPage struct {
	Name   string
	Tables []string
	Error  string
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>PageDB</title>
    <style>
        body { font-family: system-ui, sans-serif; margin: 20px; }
        .empty { color: #666; font-style: italic; }
        .error { color: red; }
    </style>
</head>
<body>
    <h1>PageDB{{if .Name}} / {{.Name}}{{end}}</h1>
    {{if .Error}}
        <p class="error">{{.Error}}</p>
    {{else if .Tables}}
        <ul>{{range .Tables}}<li><a href="/tables/{{.}}/data">{{.}}</a></li>{{end}}</ul>
    {{else}}
        <p class="empty">No tables yet.</p>
    {{end}}
    <p><a href="/health">Health Check</a></p>
</body>
</html>`))

// handleIndex lists the tables of the database.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{}
	status := http.StatusOK
	if exec := GetExecutor(r); exec != nil {
		page.Name = exec.Database().Name
		page.Tables = exec.Database().Tables()
	} else {
		page.Error = "Database not initialized"
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	indexTemplate.Execute(w, page)
}

// handleHealth returns a simple health check response.
// This endpoint is used by load balancers and monitoring systems.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// tableDataPage holds data for rendering the table data template.
type tableDataPage struct {
	TableName string
	Where     string
	Plan      template.HTML
	Columns   []string
	Rows      [][]string
	Limit     int
	Offset    int
	OffsetEnd int
	HasPrev   bool
	HasNext   bool
	PrevURL   string
	NextURL   string
	Empty     bool
	Error     string
	Hint      string
}

// tableDataTemplate is the HTML template for table data display.
var tableDataTemplate = template.Must(template.New("tableData").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.TableName}} - PageDB</title>
    <style>
        body { font-family: system-ui, sans-serif; margin: 20px; }
        table { border-collapse: collapse; width: 100%; margin: 20px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f4f4f4; }
        tr:nth-child(even) { background-color: #fafafa; }
        .nav { margin: 10px 0; }
        .nav a { margin-right: 10px; padding: 5px 10px; background: #007bff; color: white; text-decoration: none; border-radius: 3px; }
        .nav a.disabled { background: #ccc; pointer-events: none; }
        .empty { color: #666; font-style: italic; }
        .error { color: red; }
        .query-plan { background: #f8f8f8; padding: 8px 12px; }
        h1 a { color: inherit; text-decoration: none; }
    </style>
</head>
<body>
    <h1><a href="/">PageDB</a> / {{.TableName}}</h1>
    <form method="get">
        <input type="text" name="where" size="60" placeholder="ID &gt; 3 AND Name = &quot;x&quot;" value="{{.Where}}">
        <input type="hidden" name="limit" value="{{.Limit}}">
        <button type="submit">Filter</button>
    </form>
    {{if .Error}}
        <p class="error" role="alert">{{.Error}}</p>
        {{if .Hint}}<p>{{.Hint}}</p>{{end}}
    {{else}}
        {{.Plan}}
        {{if .Empty}}
        <p class="empty">No rows.</p>
        {{else}}
        <div class="nav">
            {{if .HasPrev}}<a href="{{.PrevURL}}">← Previous</a>{{else}}<a class="disabled">← Previous</a>{{end}}
            {{if .HasNext}}<a href="{{.NextURL}}">Next →</a>{{else}}<a class="disabled">Next →</a>{{end}}
            <span>Showing rows {{.Offset}} - {{.OffsetEnd}} (limit {{.Limit}})</span>
        </div>
        <table>
            <thead>
                <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
            </thead>
            <tbody>
                {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
            </tbody>
        </table>
        {{end}}
    {{end}}
</body>
</html>`))

// pageURL links to another page of the same filtered view.
func pageURL(tableName, where string, limit, offset int) string {
	q := url.Values{}
	if where != "" {
		q.Set("where", where)
	}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))
	return fmt.Sprintf("/tables/%s/data?%s", url.PathEscape(tableName), q.Encode())
}

// handleTableData serves paginated, optionally filtered table data.
// GET /tables/{name}/data?where=...&limit=50&offset=0
func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	tableName := chi.URLParam(r, "name")
	limit, offset := pagination(r)

	page := tableDataPage{
		TableName: tableName,
		Where:     r.URL.Query().Get("where"),
		Limit:     limit,
		Offset:    offset,
	}
	render := func(status int) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		tableDataTemplate.Execute(w, page)
	}
	fail := func(err error) {
		page.Error = err.Error()
		page.Hint = GetErrorHint(page.Error)
		render(statusFor(err))
	}

	exec := GetExecutor(r)
	if exec == nil {
		page.Error = "Database not initialized"
		render(http.StatusServiceUnavailable)
		return
	}

	if page.Where != "" {
		explained, err := exec.Explain(tableName, page.Where)
		if err != nil {
			fail(err)
			return
		}
		page.Plan = template.HTML(NewPlanResponse(explained.Plan).FormatPlanHTML())
	}

	result, err := exec.Execute(&parser.SelectStatement{From: tableName, Where: page.Where})
	if err != nil {
		fail(err)
		return
	}

	page.Columns = result.Columns
	rows := result.Rows
	if offset > len(rows) {
		offset = len(rows)
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}

	for _, row := range rows[offset:end] {
		strRow := make([]string, len(row))
		for i, val := range row {
			strRow[i] = val.String()
		}
		page.Rows = append(page.Rows, strRow)
	}

	page.Empty = len(page.Rows) == 0
	page.OffsetEnd = offset + len(page.Rows)
	page.HasPrev = offset > 0
	page.HasNext = end < len(rows)

	if page.HasPrev {
		prevOffset := offset - limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		page.PrevURL = pageURL(tableName, page.Where, limit, prevOffset)
	}
	if page.HasNext {
		page.NextURL = pageURL(tableName, page.Where, limit, offset+limit)
	}

	render(http.StatusOK)
}
