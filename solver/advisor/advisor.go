// Package advisor is a single-agent solver that asks a language model which
// action to take and what the remaining cost is. The model must answer with a
// JSON object such as {"action": 1, "cost": 4.5}, where action indexes the
// action list of the prompt.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/mahd/core"
	"github.com/hupe1980/mahd/internal/util"
	"github.com/hupe1980/mahd/logging"
	"github.com/hupe1980/mahd/model"
	"github.com/hupe1980/mahd/solver"
)

var (
	// ErrInvalidAdvice is returned when the model's answer cannot be used.
	ErrInvalidAdvice = errors.New("invalid advice")
	// ErrNoActions is returned for observations without applicable actions.
	ErrNoActions = errors.New("no applicable actions")
)

// DefaultInstructions is the system prompt sent with every request.
const DefaultInstructions = `You estimate single-agent plans. Reply with only a JSON object of the form {"action": <index>, "cost": <number>} where action is the index of the best next action and cost is your estimate of the remaining cost to reach the goal.`

// DefaultPromptTemplate renders the situation followed by the numbered
// action list.
const DefaultPromptTemplate = `{{.Situation}}

Actions:
{{range $i, $a := .Actions}}{{$i}}: {{$a}}
{{end}}`

// Domain is the single-agent domain shape the advisor understands.
type Domain[O comparable, Act any] interface {
	// Describe renders the situation at obs for the model.
	Describe(obs O) string
	// Actions lists the applicable actions at obs.
	Actions(obs O) []Act
}

// Options configures a Solver.
type Options struct {
	Instructions string
	// PromptTemplate is a text/template over {Situation, Actions}.
	PromptTemplate string
	// MaxAttempts bounds requests per observation when answers are invalid.
	MaxAttempts int
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// DefaultOptions asks once with DefaultInstructions.
var DefaultOptions = Options{
	Instructions:   DefaultInstructions,
	PromptTemplate: DefaultPromptTemplate,
	MaxAttempts:    1,
}

type advice[Act any] struct {
	action Act
	cost   float64
}

// Solver implements core.SingleAgentSolver by consulting a model.
type Solver[O comparable, Act any] struct {
	solver.Base

	model  model.Model
	opts   Options
	logger logging.Logger

	mu      sync.Mutex
	answers map[O]advice[Act]
}

// New creates a Solver backed by m.
func New[O comparable, Act any](m model.Model, optFns ...func(o *Options)) (*Solver[O, Act], error) {
	if m == nil {
		return nil, fmt.Errorf("%w: model is required", core.ErrInvalidConfig)
	}
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Solver[O, Act]{
		Base:    solver.NewBase("advisor"),
		model:   m,
		opts:    opts,
		logger:  core.EnsureLogger(opts.Logger),
		answers: map[O]advice[Act]{},
	}, nil
}

// Factory returns a core.SingleAgentSolverFactory building Solvers on m.
func Factory[O comparable, Act any](m model.Model, optFns ...func(o *Options)) core.SingleAgentSolverFactory[O, Act] {
	return func(core.Params) (core.SingleAgentSolver[O, Act], error) {
		return New[O, Act](m, optFns...)
	}
}

// SolveWith binds the solver to its domain producer.
func (s *Solver[O, Act]) SolveWith(_ context.Context, producer core.DomainProducer) error {
	return s.Bind(producer)
}

// SolveFrom asks the model for advice at obs.
func (s *Solver[O, Act]) SolveFrom(ctx context.Context, obs O) error {
	d, err := solver.DomainAs[Domain[O, Act]](&s.Base)
	if err != nil {
		return err
	}
	actions := d.Actions(obs)
	if len(actions) == 0 {
		return fmt.Errorf("%v: %w", obs, ErrNoActions)
	}

	prompt, err := render(s.opts.PromptTemplate, d.Describe(obs), actions)
	if err != nil {
		return err
	}
	req := model.Request{
		Instructions: s.opts.Instructions,
		Messages:     []model.Message{{Role: "user", Text: prompt}},
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		resp, err := model.Collect(ctx, s.model, req)
		if err != nil {
			return fmt.Errorf("consult %s: %w", s.model.Info().Name, err)
		}
		idx, cost, err := ParseAdvice(resp.Text, len(actions))
		if err != nil {
			lastErr = err
			s.logger.Warn("model returned invalid advice", "component", "advisor", "attempt", attempt, "error", err)
			continue
		}

		s.mu.Lock()
		s.answers[obs] = advice[Act]{action: actions[idx], cost: cost}
		s.mu.Unlock()
		return nil
	}
	return lastErr
}

func render[Act any](tmpl, situation string, actions []Act) (string, error) {
	out, err := util.RenderTemplate(tmpl, struct {
		Situation string
		Actions   []Act
	}{situation, actions})
	if err != nil {
		return "", fmt.Errorf("%w: prompt template: %v", core.ErrInvalidConfig, err)
	}
	return out, nil
}

// Prompt renders the default user message for a situation and its actions.
func Prompt[Act any](situation string, actions []Act) string {
	out, err := render(DefaultPromptTemplate, situation, actions)
	if err != nil {
		panic(err)
	}
	return out
}

// ParseAdvice extracts the action index and cost from a model answer. Text
// around the JSON object, such as a code fence, is ignored.
func ParseAdvice(text string, numActions int) (int, float64, error) {
	start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return 0, 0, fmt.Errorf("%w: no JSON object in %q", ErrInvalidAdvice, text)
	}
	raw := text[start : end+1]
	if !gjson.Valid(raw) {
		return 0, 0, fmt.Errorf("%w: malformed JSON %q", ErrInvalidAdvice, raw)
	}

	action := gjson.Get(raw, "action")
	if action.Type != gjson.Number || action.Float() != float64(action.Int()) {
		return 0, 0, fmt.Errorf("%w: action must be an integer index", ErrInvalidAdvice)
	}
	idx := int(action.Int())
	if idx < 0 || idx >= numActions {
		return 0, 0, fmt.Errorf("%w: action %d out of range [0,%d)", ErrInvalidAdvice, idx, numActions)
	}

	cost := gjson.Get(raw, "cost")
	if cost.Type != gjson.Number || cost.Float() < 0 {
		return 0, 0, fmt.Errorf("%w: cost must be a non-negative number", ErrInvalidAdvice)
	}
	return idx, cost.Float(), nil
}

func (s *Solver[O, Act]) advice(obs O) (advice[Act], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[obs]
	if !ok {
		return advice[Act]{}, fmt.Errorf("%w: %v", core.ErrNotSolved, obs)
	}
	return a, nil
}

// NextAction returns the advised action.
func (s *Solver[O, Act]) NextAction(_ context.Context, obs O) (Act, error) {
	a, err := s.advice(obs)
	return a.action, err
}

// Utility returns the advised remaining cost.
func (s *Solver[O, Act]) Utility(_ context.Context, obs O) (core.Value, error) {
	a, err := s.advice(obs)
	if err != nil {
		return core.Value{}, err
	}
	return core.CostValue(a.cost), nil
}
