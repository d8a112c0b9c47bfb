package profile

import (
	"errors"
	"sort"
	"strings"
)

// Occupation is the free-form occupation label supplied by the user.
type Occupation string

const (
	OccupationStudent          Occupation = "Student"
	OccupationFarmer           Occupation = "Farmer"
	OccupationBusinessOwner    Occupation = "Business Owner"
	OccupationSalariedEmployee Occupation = "Salaried Employee"
	OccupationFreelancer       Occupation = "Freelancer"
	OccupationRetired          Occupation = "Retired"
)

// Occupations lists the occupations offered by the input forms.
var Occupations = []Occupation{
	OccupationStudent,
	OccupationFarmer,
	OccupationBusinessOwner,
	OccupationSalariedEmployee,
	OccupationFreelancer,
	OccupationRetired,
}

type MaritalStatus string

const (
	Single   MaritalStatus = "Single"
	Married  MaritalStatus = "Married"
	Divorced MaritalStatus = "Divorced"
	Widowed  MaritalStatus = "Widowed"
)

var MaritalStatuses = []MaritalStatus{Single, Married, Divorced, Widowed}

type RiskAppetite string

const (
	RiskLow    RiskAppetite = "Low"
	RiskMedium RiskAppetite = "Medium"
	RiskHigh   RiskAppetite = "High"
)

var RiskAppetites = []RiskAppetite{RiskLow, RiskMedium, RiskHigh}

// HealthConditions lists the pre-existing conditions offered by the input forms.
var HealthConditions = []string{"None", "Diabetes", "Heart Disease", "Asthma", "Cancer"}

// Profile is the user description a recommendation is computed for.
type Profile struct {
	Age              int           `json:"age" mapstructure:"age"`
	Income           int           `json:"income" mapstructure:"income"`
	Occupation       Occupation    `json:"occupation" mapstructure:"occupation"`
	HealthConditions []string      `json:"health_conditions" mapstructure:"health_conditions"`
	MaritalStatus    MaritalStatus `json:"marital_status" mapstructure:"marital_status"`
	Dependents       int           `json:"dependents" mapstructure:"dependents"`
	RiskAppetite     RiskAppetite  `json:"risk_appetite" mapstructure:"risk_appetite"`
}

// Validate rejects numerically impossible profiles. Unknown occupations and
// risk appetites are accepted: they only contribute no tags.
func (p Profile) Validate() error {
	var errs []error
	if p.Age < 0 {
		errs = append(errs, errors.New("age must not be negative"))
	}
	if p.Income < 0 {
		errs = append(errs, errors.New("income must not be negative"))
	}
	if p.Dependents < 0 {
		errs = append(errs, errors.New("dependents must not be negative"))
	}
	return errors.Join(errs...)
}

// TagSet is a set of lowercase plan type tags.
type TagSet map[string]struct{}

func NewTagSet(tags ...string) TagSet {
	set := make(TagSet, len(tags))
	for _, tag := range tags {
		set.Add(tag)
	}
	return set
}

func (s TagSet) Add(tag string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return
	}
	s[tag] = struct{}{}
}

func (s TagSet) Has(tag string) bool {
	_, ok := s[strings.ToLower(tag)]
	return ok
}

func (s TagSet) Len() int { return len(s) }

// Sorted returns the tags in lexical order.
func (s TagSet) Sorted() []string {
	tags := make([]string, 0, len(s))
	for tag := range s {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
