package claims

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ModeCashless      = "Cashless"
	ModeReimbursement = "Reimbursement"
)

var (
	ErrUnknownType = errors.New("unknown insurance type")
	ErrUnknownMode = errors.New("unknown claim mode")
)

//go:embed guides.yaml
var guidesYAML []byte

// Link points to an insurer page or claim form.
type Link struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

// Guide is the filing procedure for one insurance type and mode.
type Guide struct {
	Type     string   `yaml:"-" json:"type"`
	Mode     string   `yaml:"-" json:"mode,omitempty"`
	Steps    []string `yaml:"steps" json:"steps"`
	Links    []Link   `yaml:"links" json:"links,omitempty"`
	Helpline string   `yaml:"helpline" json:"helpline,omitempty"`
	Notes    string   `yaml:"notes" json:"notes,omitempty"`
}

type entry struct {
	Type  string           `yaml:"type"`
	Guide `yaml:",inline"`
	Modes map[string]Guide `yaml:"modes"`
}

// Book holds the claim guides in their declared order.
type Book struct {
	entries []entry
}

// Parse decodes a YAML list of guides.
func Parse(data []byte) (*Book, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode claim guides: %w", err)
	}

	for idx, e := range entries {
		if strings.TrimSpace(e.Type) == "" {
			return nil, fmt.Errorf("claim guide %d has no type", idx)
		}
		if len(e.Steps) == 0 && len(e.Modes) == 0 {
			return nil, fmt.Errorf("claim guide %q has no steps", e.Type)
		}
	}

	return &Book{entries: entries}, nil
}

// Builtin returns the embedded guide book.
func Builtin() *Book {
	book, err := Parse(guidesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded claim guides are invalid: %v", err))
	}
	return book
}

// Types lists the insurance types that have a guide.
func (b *Book) Types() []string {
	types := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		types = append(types, e.Type)
	}
	return types
}

// Modes lists the claim modes accepted by Lookup.
func Modes() []string {
	return []string{ModeCashless, ModeReimbursement}
}

// Lookup finds the guide for an insurance type. The mode only selects between
// variants for types that have them (health); other types ignore it.
func (b *Book) Lookup(insuranceType, mode string) (*Guide, error) {
	for _, e := range b.entries {
		if !strings.EqualFold(e.Type, strings.TrimSpace(insuranceType)) {
			continue
		}

		if len(e.Modes) == 0 {
			guide := e.Guide
			guide.Type = e.Type
			return &guide, nil
		}

		for name, variant := range e.Modes {
			if strings.EqualFold(name, strings.TrimSpace(mode)) {
				guide := variant
				guide.Type = e.Type
				guide.Mode = name
				return &guide, nil
			}
		}

		return nil, fmt.Errorf("%w %q for %s", ErrUnknownMode, mode, e.Type)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, insuranceType)
}
