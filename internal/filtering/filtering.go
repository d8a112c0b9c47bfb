package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/insurance-advisor/internal/catalog"
	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to catalog plans.
type Filter interface {
	Name() string
	Apply(ctx context.Context, plans []catalog.Plan) ([]catalog.Plan, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Run executes the supplied filters sequentially. Every step keeps the relative
// order of the plans it lets through, so the result follows catalog order.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, plans []catalog.Plan) ([]catalog.Plan, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, info, err := step.Apply(ctx, plans)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		plans = next
	}

	return plans, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{Name: step.Name()})
	}
	return statuses
}

// keep returns the plans accepted by pred, in their original order.
func keep(plans []catalog.Plan, pred func(catalog.Plan) bool) ([]catalog.Plan, Step) {
	kept := make([]catalog.Plan, 0, len(plans))
	for _, plan := range plans {
		if pred(plan) {
			kept = append(kept, plan)
		}
	}
	return kept, Step{Initial: len(plans), Dropped: len(plans) - len(kept), Left: len(kept)}
}
