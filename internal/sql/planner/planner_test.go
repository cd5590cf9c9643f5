package planner

import (
	"strings"
	"testing"

	"github.com/cabewaldrop/pagedb/internal/query"
	"github.com/cabewaldrop/pagedb/internal/storage"
	"github.com/cabewaldrop/pagedb/internal/table"
)

// Helper to create a test table with primary key
func testTable(t *testing.T, primaryKey string) *table.Table {
	t.Helper()
	schema, err := table.NewSchema([]table.Column{
		{Name: "id", Type: storage.KindInteger},
		{Name: "name", Type: storage.KindText},
		{Name: "age", Type: storage.KindInteger},
	}, primaryKey)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	tbl, err := table.Create(t.TempDir(), "users", schema, table.Options{PageCapacity: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := int64(1); i <= 7; i++ {
		if _, err := tbl.InsertRow(storage.NewInteger(i), storage.NewText("u"), storage.NewInteger(20+i)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return tbl
}

func TestPlan_NoWhere(t *testing.T) {
	plan, err := New().Plan(testTable(t, "id"), "")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if len(plan.Steps) != 1 || plan.Steps[0].Access != FullTableScan {
		t.Errorf("expected a single FullTableScan, got %v", plan.Steps)
	}
	if plan.Rows != 7 {
		t.Errorf("expected 7 rows, got %d", plan.Rows)
	}
}

func TestPlan_PKEquality(t *testing.T) {
	plan, err := New().Plan(testTable(t, "id"), "id = 5")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan.Steps))
	}
	step := plan.Steps[0]
	if step.Access != IndexLookup {
		t.Errorf("expected IndexLookup, got %v", step.Access)
	}
	if step.Clause == nil || step.Clause.Value.Int() != 5 {
		t.Errorf("expected lookup key 5, got %v", step.Clause)
	}
}

func TestPlan_AccessMethods(t *testing.T) {
	tests := []struct {
		condition string
		pk        string
		want      []AccessMethod
	}{
		{"id > 3", "id", []AccessMethod{IndexRangeScan}},
		{"id != 3", "id", []AccessMethod{IndexRangeScan}},
		{"age = 21", "id", []AccessMethod{FullTableScan}},
		{"id = 3", "", []AccessMethod{FullTableScan}},
		{"id = 3 AND name = \"u\"", "id", []AccessMethod{IndexLookup, FullTableScan}},
	}

	for _, tt := range tests {
		plan, err := New().Plan(testTable(t, tt.pk), tt.condition)
		if err != nil {
			t.Errorf("Plan(%q): %v", tt.condition, err)
			continue
		}
		var got []AccessMethod
		for _, s := range plan.Steps {
			if s.Instr.Kind == query.InstrClause {
				got = append(got, s.Access)
			}
		}
		if len(got) != len(tt.want) {
			t.Errorf("Plan(%q) = %v, want %v", tt.condition, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Plan(%q) step %d = %v, want %v", tt.condition, i, got[i], tt.want[i])
			}
		}
	}
}

func TestPlan_CombinatorSteps(t *testing.T) {
	plan, err := New().Plan(testTable(t, "id"), "(id = 1 OR id = 2) AND age > 20")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Postfix != "0 1 OR 2 AND" {
		t.Errorf("unexpected postfix %q", plan.Postfix)
	}

	out := plan.String()
	for _, want := range []string{"INDEX_LOOKUP on id = 1", "UNION", "FULL_TABLE_SCAN on age > 20", "INTERSECT"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
}

func TestPlan_CostOrdering(t *testing.T) {
	p := New()
	lookup, _ := p.Plan(testTable(t, "id"), "id = 4")
	rng, _ := p.Plan(testTable(t, "id"), "id > 4")
	scan, _ := p.Plan(testTable(t, "id"), "age > 4")

	if !(lookup.EstimatedCost < rng.EstimatedCost && rng.EstimatedCost < scan.EstimatedCost) {
		t.Errorf("expected lookup < range < scan, got %.2f %.2f %.2f",
			lookup.EstimatedCost, rng.EstimatedCost, scan.EstimatedCost)
	}
}

func TestPlan_BadCondition(t *testing.T) {
	if _, err := New().Plan(testTable(t, "id"), "missing = 1"); err == nil {
		t.Error("expected error for unknown column")
	}
}
