package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/internal/testutil"
	"github.com/hupe1980/mahd/model"
)

type gridDomain struct{}

func (gridDomain) Describe(obs int) string { return "at cell " + string(rune('0'+obs)) }

func (gridDomain) Actions(obs int) []string {
	if obs == 9 {
		return nil
	}
	return []string{"left", "right"}
}

func bound(t *testing.T, m model.Model, optFns ...func(o *Options)) *Solver[int, string] {
	t.Helper()
	s, err := New[int, string](m, optFns...)
	require.NoError(t, err)
	require.NoError(t, s.SolveWith(context.Background(), func() (core.SingleAgentDomain, error) {
		return gridDomain{}, nil
	}))
	return s
}

func TestSolver_FollowsAdvice(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.AddResponse(Prompt("at cell 1", []string{"left", "right"}), "```json\n{\"action\": 1, \"cost\": 2.5}\n```")

	s := bound(t, m)
	ctx := context.Background()

	require.NoError(t, s.SolveFrom(ctx, 1))

	act, err := s.NextAction(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "right", act)

	v, err := s.Utility(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Cost)
}

func TestSolver_InvalidAdvice(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	s := bound(t, m, func(o *Options) { o.MaxAttempts = 2 })

	err := s.SolveFrom(context.Background(), 1)
	require.ErrorIs(t, err, ErrInvalidAdvice)
	assert.Len(t, m.Prompts(), 2)

	_, err = s.NextAction(context.Background(), 1)
	assert.ErrorIs(t, err, core.ErrNotSolved)
}

func TestSolver_Errors(t *testing.T) {
	_, err := New[int, string](nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	s := bound(t, model.NewMockModel("mock", "test"))
	assert.ErrorIs(t, s.SolveFrom(context.Background(), 9), ErrNoActions)

	wrong, err := New[int, string](model.NewMockModel("mock", "test"))
	require.NoError(t, err)
	require.NoError(t, wrong.SolveWith(context.Background(), func() (core.SingleAgentDomain, error) {
		return "not a grid", nil
	}))
	assert.ErrorIs(t, wrong.SolveFrom(context.Background(), 1), core.ErrInvalidConfig)
}

func TestParseAdvice(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		idx    int
		cost   float64
		wantOK bool
	}{
		{"plain", `{"action": 0, "cost": 3}`, 0, 3, true},
		{"surrounded", `Sure! {"action": 2, "cost": 0.5} Hope that helps.`, 2, 0.5, true},
		{"no object", `take action 1`, 0, 0, false},
		{"malformed", `{"action": 1, "cost": }`, 0, 0, false},
		{"fractional index", `{"action": 1.5, "cost": 1}`, 0, 0, false},
		{"string index", `{"action": "1", "cost": 1}`, 0, 0, false},
		{"out of range", `{"action": 3, "cost": 1}`, 0, 0, false},
		{"negative cost", `{"action": 1, "cost": -1}`, 0, 0, false},
		{"missing cost", `{"action": 1}`, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, cost, err := ParseAdvice(tt.text, 3)
			if !tt.wantOK {
				assert.ErrorIs(t, err, ErrInvalidAdvice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.idx, idx)
			assert.Equal(t, tt.cost, cost)
		})
	}
}

func TestFactory_RejectsForeignDomain(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.AddResponse(Prompt("at cell 1", []string{"left", "right"}), `{"action": 0, "cost": 1}`)

	factory := Factory[int, string](m)
	s, err := factory(core.Params{})
	require.NoError(t, err)
	require.NoError(t, s.SolveWith(context.Background(), func() (core.SingleAgentDomain, error) {
		return testutil.AgentDomainFactory[string](nil, "x")
	}))
	err = s.SolveFrom(context.Background(), 1)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig), "domains without Describe are rejected")
	assert.Empty(t, m.Prompts())
}

func TestSolver_PromptTemplate(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	m.AddResponse("at cell 1 / left|right", `{"action": 1, "cost": 0}`)

	s := bound(t, m, func(o *Options) {
		o.PromptTemplate = `{{.Situation}} / {{range $i, $a := .Actions}}{{if $i}}|{{end}}{{$a}}{{end}}`
	})
	require.NoError(t, s.SolveFrom(context.Background(), 1))
	assert.Equal(t, []string{"at cell 1 / left|right"}, m.Prompts())

	broken := bound(t, m, func(o *Options) { o.PromptTemplate = "{{.Nope" })
	assert.ErrorIs(t, broken.SolveFrom(context.Background(), 1), core.ErrInvalidConfig)
}
