// Package planner explains how a condition will be answered.
//
// EDUCATIONAL NOTES:
// ------------------
// A query planner decides how to find the rows a condition asks for. Our
// conditions are compiled into a postfix program (see the query package):
//
//	ID = 3 AND Name = "x"   =>   0 1 AND
//
// Each clause is answered on its own and the partial results are combined
// with set operations, so the plan is one step per instruction:
//
//  1. INDEX_LOOKUP on ID = 3        exact key match, one tree descent
//  2. FULL_TABLE_SCAN on Name = "x" no index on Name, read every page
//  3. INTERSECT                     AND keeps rows found by both sides
//
// The key decision is per clause:
// - Should we scan the entire table (full table scan)?
// - Can we use the primary key index for faster lookup?
//
// Only the primary key is ever indexed, so the choice is simple. The costs
// are rough estimates meant for comparison only.

package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/query"
	"github.com/cabewaldrop/pagedb/internal/storage"
	"github.com/cabewaldrop/pagedb/internal/table"
)

// AccessMethod represents how to access table data.
type AccessMethod int

const (
	// FullTableScan reads all rows and filters them.
	FullTableScan AccessMethod = iota
	// IndexLookup uses an index for exact key match (e.g., pk = 5).
	IndexLookup
	// IndexRangeScan uses an index for range queries (e.g., pk > 5).
	IndexRangeScan
)

func (m AccessMethod) String() string {
	switch m {
	case FullTableScan:
		return "FULL_TABLE_SCAN"
	case IndexLookup:
		return "INDEX_LOOKUP"
	case IndexRangeScan:
		return "INDEX_RANGE_SCAN"
	default:
		return "UNKNOWN"
	}
}

// rangeSelectivity is the assumed fraction of keys a range clause matches.
const rangeSelectivity = 1.0 / 3.0

// Step is one instruction of a plan.
type Step struct {
	Instr  query.Instr
	Clause *query.Clause // nil for AND, OR and NOT
	Access AccessMethod
	Cost   float64
}

func (s Step) String() string {
	switch s.Instr.Kind {
	case query.InstrAnd:
		return "INTERSECT"
	case query.InstrOr:
		return "UNION"
	case query.InstrNot:
		return "NOT (unsupported)"
	}
	if s.Clause == nil {
		return fmt.Sprintf("%s (cost: %.2f)", s.Access, s.Cost)
	}
	return fmt.Sprintf("%s on %s (cost: %.2f)", s.Access, s.Clause, s.Cost)
}

// QueryPlan represents the execution plan for a condition.
type QueryPlan struct {
	Table         string
	Condition     string
	Postfix       string
	Rows          int
	Steps         []Step
	EstimatedCost float64 // Relative cost estimate (lower is better)
}

// String returns a human-readable representation of the query plan.
func (p *QueryPlan) String() string {
	var sb strings.Builder
	cond := p.Condition
	if cond == "" {
		cond = "<none>"
	}
	fmt.Fprintf(&sb, "Plan for %s WHERE %s\n", p.Table, cond)
	if p.Postfix != "" {
		fmt.Fprintf(&sb, "Postfix: %s\n", p.Postfix)
	}
	for i, step := range p.Steps {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
	}
	fmt.Fprintf(&sb, "Estimated cost: %.2f over %d rows", p.EstimatedCost, p.Rows)
	return sb.String()
}

// Planner analyzes queries and generates execution plans.
type Planner struct{}

// New creates a new Planner.
func New() *Planner {
	return &Planner{}
}

// Plan compiles condition against tbl's schema and returns its plan.
func (p *Planner) Plan(tbl *table.Table, condition string) (*QueryPlan, error) {
	q, err := query.Parse(condition, tbl.Schema)
	if err != nil {
		return nil, err
	}
	stats, err := tbl.Stats()
	if err != nil {
		return nil, err
	}
	return p.PlanQuery(q, tbl.Name, tbl.Index() != nil, stats.Rows), nil
}

// PlanQuery builds the plan for a compiled query over a table with rows
// live rows.
func (p *Planner) PlanQuery(q *query.Query, tableName string, indexed bool, rows int) *QueryPlan {
	plan := &QueryPlan{
		Table:     tableName,
		Condition: q.Condition,
		Postfix:   q.Postfix(),
		Rows:      rows,
	}

	if q.Empty() {
		plan.Steps = []Step{{Access: FullTableScan, Cost: scanCost(rows)}}
		plan.EstimatedCost = scanCost(rows)
		return plan
	}

	for _, in := range q.Program {
		step := Step{Instr: in}
		if in.Kind == query.InstrClause {
			c := q.Clauses[in.Clause]
			step.Clause = &c
			step.Access = p.accessMethod(c, indexed)
			step.Cost = cost(step.Access, c.Op, rows)
		}
		plan.EstimatedCost += step.Cost
		plan.Steps = append(plan.Steps, step)
	}
	return plan
}

// accessMethod picks how a single clause is answered.
//
// EDUCATIONAL NOTE:
// -----------------
// Access method selection is a key query optimization decision:
//
//  1. INDEX_LOOKUP: Best for equality on indexed column (pk = 5)
//     Cost: O(log n) - just follow B-tree path
//
//  2. INDEX_RANGE_SCAN: Good for ranges on indexed column (pk > 5)
//     Cost: O(log n + k) where k is matching rows
//
//  3. FULL_TABLE_SCAN: Required when no useful index exists
//     Cost: O(n) - must examine every row
func (p *Planner) accessMethod(c query.Clause, indexed bool) AccessMethod {
	if !c.PrimaryKey || !indexed {
		return FullTableScan
	}
	if c.Op == storage.OpEqual {
		return IndexLookup
	}
	return IndexRangeScan
}

func cost(m AccessMethod, op storage.Comparison, rows int) float64 {
	depth := math.Log2(float64(rows) + 1)
	switch m {
	case IndexLookup:
		return depth + 1
	case IndexRangeScan:
		if op == storage.OpNotEqual {
			return depth + float64(rows)
		}
		return depth + float64(rows)*rangeSelectivity
	default:
		return scanCost(rows)
	}
}

func scanCost(rows int) float64 {
	if rows < 1 {
		return 1
	}
	return float64(rows)
}
