package fraud

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	LabelFraudulent = "fraudulent"
	LabelLegitimate = "legitimate"

	// DefaultSuspiciousTerms is how many top-weighted terms are checked against a document.
	DefaultSuspiciousTerms = 10
)

var ErrInvalidModel = errors.New("invalid fraud model artifact")

// tokenPattern matches runs of two or more Unicode word characters, the same
// tokens scikit-learn's default (?u)\b\w\w+\b pattern yields.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Artifact is the offline-exported TF-IDF vectorizer and linear classifier.
type Artifact struct {
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	Coefficients []float64      `json:"coefficients"`
	Intercept    float64        `json:"intercept"`
	Lowercase    *bool          `json:"lowercase,omitempty"`
}

// Model classifies document text as fraudulent or legitimate.
type Model struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	coef       []float64
	intercept  float64
	lowercase  bool
	ranked     []string
}

// Verdict is the classification of a single document.
type Verdict struct {
	Label           string   `json:"label"`
	Fraudulent      bool     `json:"fraudulent"`
	Score           float64  `json:"score"`
	SuspiciousTerms []string `json:"suspicious_terms,omitempty"`
}

// Parse decodes and validates an artifact.
func Parse(r io.Reader) (*Model, error) {
	var artifact Artifact
	if err := json.NewDecoder(r).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return New(artifact)
}

// LoadModel reads an artifact from disk.
func LoadModel(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fraud model: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// New validates the artifact and builds a model from it.
func New(a Artifact) (*Model, error) {
	size := len(a.Vocabulary)
	if size == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary", ErrInvalidModel)
	}
	if len(a.IDF) != size || len(a.Coefficients) != size {
		return nil, fmt.Errorf("%w: vocabulary has %d terms, idf %d, coefficients %d",
			ErrInvalidModel, size, len(a.IDF), len(a.Coefficients))
	}

	terms := make([]string, size)
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= size {
			return nil, fmt.Errorf("%w: term %q has out of range index %d", ErrInvalidModel, term, idx)
		}
		if terms[idx] != "" {
			return nil, fmt.Errorf("%w: index %d assigned to %q and %q", ErrInvalidModel, idx, terms[idx], term)
		}
		terms[idx] = term
	}

	lowercase := true
	if a.Lowercase != nil {
		lowercase = *a.Lowercase
	}

	ranked := append([]string(nil), terms...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return a.Coefficients[a.Vocabulary[ranked[i]]] > a.Coefficients[a.Vocabulary[ranked[j]]]
	})

	return &Model{
		vocabulary: a.Vocabulary,
		terms:      terms,
		idf:        a.IDF,
		coef:       a.Coefficients,
		intercept:  a.Intercept,
		lowercase:  lowercase,
		ranked:     ranked,
	}, nil
}

// Vectorize returns the sparse L2-normalised TF-IDF vector of text.
func (m *Model) Vectorize(text string) map[int]float64 {
	if m.lowercase {
		text = strings.ToLower(text)
	}

	counts := make(map[int]float64)
	for _, token := range tokenPattern.FindAllString(text, -1) {
		if idx, ok := m.vocabulary[token]; ok {
			counts[idx]++
		}
	}

	var norm float64
	for idx, tf := range counts {
		weight := tf * m.idf[idx]
		counts[idx] = weight
		norm += weight * weight
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}

	return counts
}

// Classify labels the text. A positive decision value means fraudulent.
func (m *Model) Classify(text string) Verdict {
	score := m.intercept
	for idx, weight := range m.Vectorize(text) {
		score += weight * m.coef[idx]
	}

	verdict := Verdict{Label: LabelLegitimate, Score: score}
	if score > 0 {
		verdict.Label = LabelFraudulent
		verdict.Fraudulent = true
		verdict.SuspiciousTerms = m.SuspiciousTerms(text, DefaultSuspiciousTerms)
	}
	return verdict
}

// SuspiciousTerms returns those of the n highest-weighted terms that occur in
// text (case-insensitive substring), strongest first.
func (m *Model) SuspiciousTerms(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(m.ranked) {
		n = len(m.ranked)
	}

	lowered := strings.ToLower(text)
	var found []string
	for _, term := range m.ranked[:n] {
		if strings.Contains(lowered, strings.ToLower(term)) {
			found = append(found, term)
		}
	}
	return found
}

// Terms returns the vocabulary size.
func (m *Model) Terms() int {
	return len(m.terms)
}

var (
	defaultOnce  sync.Once
	defaultModel *Model
	defaultErr   error
)

// Init loads the process-wide model once.
func Init(path string) (*Model, error) {
	defaultOnce.Do(func() {
		defaultModel, defaultErr = LoadModel(path)
	})
	return defaultModel, defaultErr
}

// Default returns the model loaded by Init, or nil.
func Default() *Model {
	return defaultModel
}
