package recommend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/insurance-advisor/internal/catalog"
	"github.com/spigell/insurance-advisor/internal/filtering"
	"github.com/spigell/insurance-advisor/internal/profile"
)

// NoMatchesMessage is shown when no plan fits a profile.
const NoMatchesMessage = "No matching plans found."

var ErrInvalidProfile = errors.New("invalid profile")

// Result is the outcome of a recommendation request.
type Result struct {
	Tags  []string       `json:"tags"`
	Plans []catalog.Plan `json:"plans"`
}

// Empty reports whether no plan matched. It is a normal outcome.
func (r *Result) Empty() bool {
	return r == nil || len(r.Plans) == 0
}

// Service matches profiles against a read-only catalog.
type Service struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

func NewService(cat *catalog.Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: cat, logger: logger}
}

// Steps returns the filter chain for a profile and its preferred tags.
func (s *Service) Steps(p profile.Profile, tags profile.TagSet) []filtering.Filter {
	return []filtering.Filter{
		filtering.NewAge(p.Age),
		filtering.NewIncome(p.Income),
		filtering.NewPlanType(tags, s.logger),
	}
}

// Recommend returns the catalog plans eligible for p, in catalog order.
func (s *Service) Recommend(ctx context.Context, p profile.Profile) (*Result, error) {
	if s.catalog == nil {
		return nil, errors.New("plan catalog is not loaded")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	tags := profile.PreferredTags(p)

	plans, err := filtering.Run(ctx, s.logger, s.Steps(p, tags), s.catalog.Plans())
	if err != nil {
		return nil, fmt.Errorf("filter plans: %w", err)
	}

	s.logger.Info("recommendation computed",
		zap.String("occupation", string(p.Occupation)),
		zap.String("risk_appetite", string(p.RiskAppetite)),
		zap.Strings("tags", tags.Sorted()),
		zap.Int("catalog_size", s.catalog.Len()),
		zap.Int("matched", len(plans)),
	)

	return &Result{Tags: tags.Sorted(), Plans: plans}, nil
}
