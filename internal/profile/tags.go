package profile

import "strings"

const (
	TagCriticalIllness = "critical illness"
	TagFamilyFloater   = "family floater"
	TagSpouseAddOn     = "term with spouse add-on"
)

var occupationTags = map[string][]string{
	"student":           {"child education", "health", "travel"},
	"farmer":            {"crop", "health", "personal accident"},
	"business owner":    {"ulip", "fire", "marine", "group"},
	"salaried employee": {"term", "health", "retirement", "critical illness"},
	"freelancer":        {"personal accident", "health", "term"},
	"retired":           {"retirement", "health", "whole life"},
}

var riskTags = map[string][]string{
	"low":    {"term", "endowment", "whole life"},
	"medium": {"health", "retirement", "critical illness"},
	"high":   {"ulip", "investment-linked"},
}

// Condition names are matched exactly, as entered by the forms.
var criticalConditions = map[string]struct{}{
	"Diabetes":      {},
	"Heart Disease": {},
	"Cancer":        {},
}

var spouseStatuses = map[MaritalStatus]struct{}{
	Married: {},
	Widowed: {},
}

// PreferredTags derives the plan type tags a profile should be matched against.
func PreferredTags(p Profile) TagSet {
	tags := NewTagSet(occupationTags[strings.ToLower(string(p.Occupation))]...)

	for _, tag := range riskTags[strings.ToLower(string(p.RiskAppetite))] {
		tags.Add(tag)
	}

	for _, condition := range p.HealthConditions {
		if _, ok := criticalConditions[condition]; ok {
			tags.Add(TagCriticalIllness)
			break
		}
	}

	if p.Dependents > 0 {
		tags.Add(TagFamilyFloater)
	}

	if _, ok := spouseStatuses[p.MaritalStatus]; ok {
		tags.Add(TagSpouseAddOn)
	}

	return tags
}
