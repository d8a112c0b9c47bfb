package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrMalformed is returned when a catalog entry misses a required field or carries an invalid range.
var ErrMalformed = errors.New("malformed catalog entry")

//go:embed plans.json
var builtin []byte

// Range is an inclusive [Min, Max] interval. In JSON it is a two element array.
type Range struct {
	Min int
	Max int
}

// Contains reports whether v lies within the range, both bounds included.
func (r Range) Contains(v int) bool {
	return r.Min <= v && v <= r.Max
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Min, r.Max})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var bounds []int
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("range must be an array of two integers: %w", err)
	}
	if len(bounds) != 2 {
		return fmt.Errorf("range must have exactly two bounds, got %d", len(bounds))
	}
	if bounds[0] > bounds[1] {
		return fmt.Errorf("range minimum %d exceeds maximum %d", bounds[0], bounds[1])
	}
	r.Min, r.Max = bounds[0], bounds[1]
	return nil
}

// Plan is a single insurance plan record.
type Plan struct {
	Type        string `json:"type"`
	AgeRange    Range  `json:"age_range"`
	IncomeRange Range  `json:"income_range"`
	Coverage    string `json:"coverage"`
	Description string `json:"description"`
}

// Catalog is the ordered, read-only plan collection.
type Catalog struct {
	plans []Plan
}

var requiredFields = []string{"type", "age_range", "income_range", "coverage", "description"}

// Parse decodes a JSON array of plans. Every entry must carry all plan fields;
// the first malformed entry fails the whole load.
func Parse(r io.Reader) (*Catalog, error) {
	var raw []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	plans := make([]Plan, 0, len(raw))
	for idx, entry := range raw {
		plan, err := parseEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, idx, err)
		}
		plans = append(plans, plan)
	}

	return &Catalog{plans: plans}, nil
}

func parseEntry(entry map[string]json.RawMessage) (Plan, error) {
	for _, field := range requiredFields {
		value, ok := entry[field]
		if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return Plan{}, fmt.Errorf("missing field %q", field)
		}
	}

	var plan Plan
	if err := json.Unmarshal(entry["type"], &plan.Type); err != nil {
		return Plan{}, fmt.Errorf("field %q: %w", "type", err)
	}
	if strings.TrimSpace(plan.Type) == "" {
		return Plan{}, fmt.Errorf("field %q is empty", "type")
	}
	if err := json.Unmarshal(entry["age_range"], &plan.AgeRange); err != nil {
		return Plan{}, fmt.Errorf("field %q: %w", "age_range", err)
	}
	if err := json.Unmarshal(entry["income_range"], &plan.IncomeRange); err != nil {
		return Plan{}, fmt.Errorf("field %q: %w", "income_range", err)
	}
	if err := json.Unmarshal(entry["coverage"], &plan.Coverage); err != nil {
		return Plan{}, fmt.Errorf("field %q: %w", "coverage", err)
	}
	if err := json.Unmarshal(entry["description"], &plan.Description); err != nil {
		return Plan{}, fmt.Errorf("field %q: %w", "description", err)
	}

	return plan, nil
}

// LoadFile parses the catalog stored at path. An empty path loads the built-in catalog.
func LoadFile(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Parse(bytes.NewReader(builtin))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// New builds a catalog from already validated plans. Used by tests and tooling.
func New(plans ...Plan) *Catalog {
	return &Catalog{plans: append([]Plan(nil), plans...)}
}

// Plans returns a copy of the plans in catalog order.
func (c *Catalog) Plans() []Plan {
	if c == nil {
		return nil
	}
	return append([]Plan(nil), c.plans...)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.plans)
}

// Contains reports whether the exact plan is present in the catalog.
func (c *Catalog) Contains(p Plan) bool {
	if c == nil {
		return false
	}
	for _, plan := range c.plans {
		if plan == p {
			return true
		}
	}
	return false
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Init loads the process-wide catalog once. Subsequent calls return the first result.
func Init(path string) (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = LoadFile(path)
	})
	return defaultCatalog, defaultErr
}

// Default returns the catalog loaded by Init, or nil when Init has not succeeded.
func Default() *Catalog {
	return defaultCatalog
}
