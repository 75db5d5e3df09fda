// Package planner computes the exact per-type breakdown of a requested batch.
//
// Each form (closed and open) is planned independently. Types with a quota
// table take a fixed share at the supported totals, in priority order. The
// form's catch-all type absorbs the remainder. When the catch-all was not
// selected, the remainder is spread one unit at a time over the types that
// already received an allocation, or over all selected types of the form if
// none did.
package planner

import "github.com/phrazzld/scry-forge/internal/domain"

type quotaTable struct {
	taskType domain.TaskType
	quotas   map[int]int
}

type formPlan struct {
	tables   []quotaTable
	catchAll domain.TaskType
}

var plans = map[domain.Form]formPlan{
	domain.FormClosed: {
		tables: []quotaTable{
			{domain.TypeMultipleChoice, map[int]int{5: 1, 10: 3, 15: 4, 20: 6}},
		},
		catchAll: domain.TypeSingleChoice,
	},
	domain.FormOpen: {
		tables: []quotaTable{
			{domain.TypeMatching, map[int]int{5: 1, 10: 2, 15: 3}},
			{domain.TypeFillBlank, map[int]int{5: 1, 10: 2, 15: 3, 20: 4}},
		},
		catchAll: domain.TypeOpenQuestion,
	},
}

// priority returns the types of a form, table types first in priority order
// and the catch-all last.
func (p formPlan) priority() []domain.TaskType {
	out := make([]domain.TaskType, 0, len(p.tables)+1)
	for _, t := range p.tables {
		out = append(out, t.taskType)
	}
	return append(out, p.catchAll)
}

// Plan returns the per-type counts for total tasks of the given form, using
// only types present in selected. The counts sum to total unless total is not
// positive or no type of the form was selected, in which case the result is empty.
func Plan(total int, form domain.Form, selected []domain.TaskType) []domain.Distribution {
	p, ok := plans[form]
	if !ok || total <= 0 {
		return nil
	}

	chosen := make(map[domain.TaskType]bool, len(selected))
	for _, t := range selected {
		chosen[t] = true
	}

	var eligible []domain.TaskType
	for _, t := range p.priority() {
		if chosen[t] {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	counts := make(map[domain.TaskType]int, len(eligible))
	var allocated []domain.TaskType
	remaining := total

	for _, table := range p.tables {
		if !chosen[table.taskType] {
			continue
		}
		n := min(table.quotas[total], remaining)
		if n <= 0 {
			continue
		}
		counts[table.taskType] = n
		allocated = append(allocated, table.taskType)
		remaining -= n
	}

	if remaining > 0 {
		if chosen[p.catchAll] {
			counts[p.catchAll] += remaining
		} else {
			targets := allocated
			if len(targets) == 0 {
				targets = eligible
			}
			for i := 0; remaining > 0; i++ {
				counts[targets[i%len(targets)]]++
				remaining--
			}
		}
	}

	dist := make([]domain.Distribution, 0, len(counts))
	for _, t := range eligible {
		if n := counts[t]; n > 0 {
			dist = append(dist, domain.Distribution{Type: t, Count: n})
		}
	}
	return dist
}

// PlanClosed plans the closed-form part of a batch.
func PlanClosed(total int, selected []domain.TaskType) []domain.Distribution {
	return Plan(total, domain.FormClosed, selected)
}

// PlanOpen plans the open-form part of a batch.
func PlanOpen(total int, selected []domain.TaskType) []domain.Distribution {
	return Plan(total, domain.FormOpen, selected)
}

// PlanRequest plans both forms of a request.
func PlanRequest(req *domain.Request) (closed, open []domain.Distribution) {
	return PlanClosed(req.ClosedCount, req.Types), PlanOpen(req.OpenCount, req.Types)
}
