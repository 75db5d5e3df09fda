package planner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-forge/internal/domain"
)

func counts(dist []domain.Distribution) map[domain.TaskType]int {
	out := make(map[domain.TaskType]int, len(dist))
	for _, d := range dist {
		out[d.Type] = d.Count
	}
	return out
}

func TestPlanOpenFifteen(t *testing.T) {
	t.Parallel()

	dist := PlanOpen(15, []domain.TaskType{
		domain.TypeMatching, domain.TypeFillBlank, domain.TypeOpenQuestion,
	})

	assert.Equal(t, []domain.Distribution{
		{Type: domain.TypeMatching, Count: 3},
		{Type: domain.TypeFillBlank, Count: 3},
		{Type: domain.TypeOpenQuestion, Count: 9},
	}, dist)
}

func TestPlanClosedTen(t *testing.T) {
	t.Parallel()

	dist := PlanClosed(10, []domain.TaskType{domain.TypeSingleChoice, domain.TypeMultipleChoice})

	assert.Equal(t, map[domain.TaskType]int{
		domain.TypeMultipleChoice: 3,
		domain.TypeSingleChoice:   7,
	}, counts(dist))
}

func TestPlanSumsToTotal(t *testing.T) {
	t.Parallel()

	subsets := [][]domain.TaskType{
		{domain.TypeSingleChoice},
		{domain.TypeMultipleChoice},
		{domain.TypeSingleChoice, domain.TypeMultipleChoice},
		{domain.TypeOpenQuestion},
		{domain.TypeMatching},
		{domain.TypeFillBlank},
		{domain.TypeMatching, domain.TypeFillBlank},
		{domain.TypeMatching, domain.TypeOpenQuestion},
		{domain.TypeMatching, domain.TypeFillBlank, domain.TypeOpenQuestion},
		domain.AllTaskTypes,
	}

	for _, form := range []domain.Form{domain.FormClosed, domain.FormOpen} {
		for _, subset := range subsets {
			hasForm := false
			for _, st := range subset {
				if st.Form() == form {
					hasForm = true
				}
			}
			for _, total := range []int{0, 5, 10, 15, 20} {
				name := fmt.Sprintf("%s/%v/%d", form, subset, total)
				t.Run(name, func(t *testing.T) {
					dist := Plan(total, form, subset)
					if !hasForm {
						assert.Empty(t, dist)
						return
					}
					assert.Equal(t, total, domain.TotalCount(dist))
					for _, d := range dist {
						assert.Positive(t, d.Count)
						assert.Contains(t, subset, d.Type)
						assert.Equal(t, form, d.Type.Form())
					}
				})
			}
		}
	}
}

func TestPlanRoundRobinWithoutCatchAll(t *testing.T) {
	t.Parallel()

	t.Run("remainder spread over allocated types", func(t *testing.T) {
		dist := PlanOpen(10, []domain.TaskType{domain.TypeMatching, domain.TypeFillBlank})
		// tables give 2 + 2, the remaining 6 alternate starting with matching
		assert.Equal(t, map[domain.TaskType]int{
			domain.TypeMatching:  5,
			domain.TypeFillBlank: 5,
		}, counts(dist))
	})

	t.Run("uneven remainder favours priority order", func(t *testing.T) {
		dist := PlanOpen(5, []domain.TaskType{domain.TypeMatching, domain.TypeFillBlank})
		assert.Equal(t, []domain.Distribution{
			{Type: domain.TypeMatching, Count: 3},
			{Type: domain.TypeFillBlank, Count: 2},
		}, dist)
	})

	t.Run("total without table entry", func(t *testing.T) {
		dist := PlanOpen(20, []domain.TaskType{domain.TypeMatching})
		assert.Equal(t, []domain.Distribution{{Type: domain.TypeMatching, Count: 20}}, dist)
	})

	t.Run("unsupported total falls back to selected types", func(t *testing.T) {
		dist := PlanOpen(7, []domain.TaskType{domain.TypeFillBlank, domain.TypeMatching})
		assert.Equal(t, []domain.Distribution{
			{Type: domain.TypeMatching, Count: 4},
			{Type: domain.TypeFillBlank, Count: 3},
		}, dist)
	})
}

func TestPlanEdgeCases(t *testing.T) {
	t.Parallel()

	assert.Empty(t, PlanClosed(0, domain.AllTaskTypes))
	assert.Empty(t, PlanClosed(-5, domain.AllTaskTypes))
	assert.Empty(t, PlanClosed(10, nil))
	assert.Empty(t, PlanClosed(10, []domain.TaskType{"essay"}))
	assert.Empty(t, PlanClosed(10, []domain.TaskType{domain.TypeMatching}))
	assert.Empty(t, Plan(10, domain.Form("mixed"), domain.AllTaskTypes))

	dist := PlanClosed(20, []domain.TaskType{domain.TypeMultipleChoice, domain.TypeMultipleChoice})
	assert.Equal(t, []domain.Distribution{{Type: domain.TypeMultipleChoice, Count: 20}}, dist)
}

func TestPlanRequest(t *testing.T) {
	t.Parallel()

	req := &domain.Request{
		Types:       domain.AllTaskTypes,
		ClosedCount: 10,
		OpenCount:   5,
	}

	closed, open := PlanRequest(req)
	require.Equal(t, 10, domain.TotalCount(closed))
	require.Equal(t, 5, domain.TotalCount(open))
	assert.Equal(t, map[domain.TaskType]int{
		domain.TypeMatching:     1,
		domain.TypeFillBlank:    1,
		domain.TypeOpenQuestion: 3,
	}, counts(open))
}
