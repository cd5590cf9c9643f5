package web

import (
	"fmt"
	"html"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/query"
	"github.com/cabewaldrop/pagedb/internal/sql/planner"
)

// PlanStep is one instruction of a plan in display form.
type PlanStep struct {
	Step      int     `json:"step"`
	Operation string  `json:"operation"` // FULL_TABLE_SCAN, INDEX_LOOKUP, INDEX_RANGE_SCAN, INTERSECT, UNION, NOT
	Clause    string  `json:"clause,omitempty"`
	Cost      float64 `json:"cost"`
}

// PlanResponse is the JSON form of a query plan.
type PlanResponse struct {
	Table         string     `json:"table"`
	Condition     string     `json:"condition"`
	Postfix       string     `json:"postfix,omitempty"`
	Rows          int        `json:"rows"`
	EstimatedCost float64    `json:"estimated_cost"`
	Steps         []PlanStep `json:"steps"`
}

// NewPlanResponse converts a planner result for display.
func NewPlanResponse(p *planner.QueryPlan) *PlanResponse {
	if p == nil {
		return nil
	}
	resp := &PlanResponse{
		Table:         p.Table,
		Condition:     p.Condition,
		Postfix:       p.Postfix,
		Rows:          p.Rows,
		EstimatedCost: p.EstimatedCost,
	}
	for i, s := range p.Steps {
		step := PlanStep{Step: i + 1, Cost: s.Cost}
		switch s.Instr.Kind {
		case query.InstrAnd:
			step.Operation = "INTERSECT"
		case query.InstrOr:
			step.Operation = "UNION"
		case query.InstrNot:
			step.Operation = "NOT"
		default:
			step.Operation = s.Access.String()
			if s.Clause != nil {
				step.Clause = s.Clause.String()
			}
		}
		resp.Steps = append(resp.Steps, step)
	}
	return resp
}

// FormatPlanHTML formats a plan as HTML for web display.
func (p *PlanResponse) FormatPlanHTML() string {
	var sb strings.Builder

	sb.WriteString(`<div class="query-plan">`)
	sb.WriteString(`<h4>Query Plan</h4>`)
	fmt.Fprintf(&sb, `<div class="plan-row"><span class="plan-label">Condition:</span> <code>%s</code></div>`,
		html.EscapeString(p.Condition))
	fmt.Fprintf(&sb, `<div class="plan-row"><span class="plan-label">Estimated Cost:</span> %.2f over %d rows</div>`,
		p.EstimatedCost, p.Rows)

	sb.WriteString(`<ol class="plan-steps">`)
	for _, s := range p.Steps {
		class := strings.ToLower(strings.ReplaceAll(s.Operation, "_", "-"))
		fmt.Fprintf(&sb, `<li class="access-%s">%s`, class, s.Operation)
		if s.Clause != "" {
			fmt.Fprintf(&sb, ` on <code>%s</code>`, html.EscapeString(s.Clause))
		}
		sb.WriteString(`</li>`)
	}
	sb.WriteString(`</ol>`)

	sb.WriteString(`</div>`)
	return sb.String()
}
