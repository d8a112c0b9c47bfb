package filtering

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/insurance-advisor/internal/catalog"
	"github.com/spigell/insurance-advisor/internal/profile"
)

type ageFilter struct {
	age int
}

// NewAge creates a filter that keeps plans whose age range contains age.
func NewAge(age int) Filter {
	return &ageFilter{age: age}
}

func (f *ageFilter) Name() string { return "age_range" }

func (f *ageFilter) Apply(_ context.Context, plans []catalog.Plan) ([]catalog.Plan, Step, error) {
	kept, step := keep(plans, func(p catalog.Plan) bool { return p.AgeRange.Contains(f.age) })
	return kept, step, nil
}

func (f *ageFilter) Status() Status {
	return Status{Name: f.Name(), Details: map[string]string{"age": strconv.Itoa(f.age)}}
}

type incomeFilter struct {
	income int
}

// NewIncome creates a filter that keeps plans whose income range contains income.
func NewIncome(income int) Filter {
	return &incomeFilter{income: income}
}

func (f *incomeFilter) Name() string { return "income_range" }

func (f *incomeFilter) Apply(_ context.Context, plans []catalog.Plan) ([]catalog.Plan, Step, error) {
	kept, step := keep(plans, func(p catalog.Plan) bool { return p.IncomeRange.Contains(f.income) })
	return kept, step, nil
}

func (f *incomeFilter) Status() Status {
	return Status{Name: f.Name(), Details: map[string]string{"income": strconv.Itoa(f.income)}}
}

type planTypeFilter struct {
	tags   []string
	logger *zap.Logger
}

// NewPlanType creates a filter that keeps plans whose lowercased type contains
// at least one of the tags as a substring. Substring matching means "term"
// also matches inside e.g. "long-term care"; the matched tag is logged so such
// cases are visible.
func NewPlanType(tags profile.TagSet, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &planTypeFilter{tags: tags.Sorted(), logger: logger}
}

func (f *planTypeFilter) Name() string { return "plan_type" }

func (f *planTypeFilter) Apply(_ context.Context, plans []catalog.Plan) ([]catalog.Plan, Step, error) {
	kept, step := keep(plans, func(p catalog.Plan) bool {
		tag, ok := MatchTag(f.tags, p.Type)
		if ok {
			f.logger.Debug("plan type matched",
				zap.String("plan_type", p.Type),
				zap.String("tag", tag),
			)
		}
		return ok
	})
	return kept, step, nil
}

func (f *planTypeFilter) Status() Status {
	return Status{Name: f.Name(), Details: map[string]string{"tags": strings.Join(f.tags, ",")}}
}

// MatchTag returns the first tag that is a substring of the lowercased plan type.
func MatchTag(tags []string, planType string) (string, bool) {
	lowered := strings.ToLower(planType)
	for _, tag := range tags {
		if strings.Contains(lowered, tag) {
			return tag, true
		}
	}
	return "", false
}
