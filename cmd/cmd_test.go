package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/spigell/insurance-advisor/internal/catalog"
	"github.com/spigell/insurance-advisor/internal/claims"
	"github.com/spigell/insurance-advisor/internal/profile"
	"github.com/spigell/insurance-advisor/internal/recommend"
)

func TestDecodeProfile(t *testing.T) {
	p, err := decodeProfile(map[string]any{
		"age":               "30",
		"income":            "200000",
		"occupation":        "salaried employee",
		"marital_status":    "married",
		"dependents":        "2",
		"risk_appetite":     "HIGH",
		"health_conditions": []string{"heart disease", " ", "asthma"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Age != 30 || p.Income != 200000 || p.Dependents != 2 {
		t.Fatalf("unexpected numbers: %+v", p)
	}
	if p.Occupation != profile.OccupationSalariedEmployee {
		t.Fatalf("unexpected occupation: %q", p.Occupation)
	}
	if p.MaritalStatus != profile.Married || p.RiskAppetite != profile.RiskHigh {
		t.Fatalf("unexpected labels: %q %q", p.MaritalStatus, p.RiskAppetite)
	}
	if len(p.HealthConditions) != 2 || p.HealthConditions[0] != "Heart Disease" || p.HealthConditions[1] != "Asthma" {
		t.Fatalf("unexpected conditions: %v", p.HealthConditions)
	}

	tags := profile.PreferredTags(p)
	for _, want := range []string{profile.TagCriticalIllness, profile.TagSpouseAddOn, profile.TagFamilyFloater} {
		if !tags.Has(want) {
			t.Fatalf("expected tag %q in %v", want, tags.Sorted())
		}
	}
}

func TestDecodeProfileErrors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{name: "not a number", values: map[string]any{"age": "thirty"}},
		{name: "unknown key", values: map[string]any{"salary": "1"}},
		{name: "negative dependents", values: map[string]any{"dependents": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeProfile(tt.values); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestProfileValuesFromFlags(t *testing.T) {
	flags := pflag.NewFlagSet("recommend", pflag.ContinueOnError)
	addProfileFlags(flags)

	if err := flags.Parse([]string{"--age", "40", "--occupation", "Farmer", "--condition", "Diabetes", "--condition", "Cancer"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	values, err := profileValuesFromFlags(flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := decodeProfile(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Age != 40 || p.Occupation != profile.OccupationFarmer || p.RiskAppetite != profile.RiskMedium {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.HealthConditions) != 2 {
		t.Fatalf("expected repeated conditions, got %v", p.HealthConditions)
	}
}

func TestValidateCount(t *testing.T) {
	for input, ok := range map[string]bool{"0": true, " 12 ": true, "-3": false, "abc": false, "": false} {
		if err := validateCount(input); (err == nil) != ok {
			t.Fatalf("validateCount(%q) = %v, expected ok=%v", input, err, ok)
		}
	}
}

func TestPrintRecommendation(t *testing.T) {
	var buf bytes.Buffer
	printRecommendation(&buf, &recommend.Result{
		Tags: []string{"crop", "health"},
		Plans: []catalog.Plan{{
			Type:        "Crop Insurance",
			AgeRange:    catalog.Range{Min: 18, Max: 75},
			IncomeRange: catalog.Range{Min: 100000, Max: 1000000},
			Coverage:    "Crop loss",
			Description: "Protects farm income.",
		}},
	})

	out := buf.String()
	for _, want := range []string{"Preferred plan types: crop, health", "1. Crop Insurance", "Age 18-75, income 100000-1000000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	printRecommendation(&buf, &recommend.Result{})
	if strings.TrimSpace(buf.String()) != recommend.NoMatchesMessage {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}
}

func TestPrintClaimGuide(t *testing.T) {
	var buf bytes.Buffer
	if err := printClaimGuide(&buf, claims.Builtin(), "health insurance", "reimbursement"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Health Insurance (Reimbursement)") || !strings.Contains(out, "1. Pay all hospital bills upfront.") {
		t.Fatalf("unexpected guide output:\n%s", out)
	}

	buf.Reset()
	if err := printClaimGuide(&buf, claims.Builtin(), "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "  - Term Insurance") {
		t.Fatalf("expected type listing, got:\n%s", buf.String())
	}

	if err := printClaimGuide(&buf, claims.Builtin(), "Pet", ""); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestCatalogPath(t *testing.T) {
	config := &Config{Catalog: CatalogConfig{Path: "configured.json"}}

	flags := pflag.NewFlagSet("recommend", pflag.ContinueOnError)
	addCatalogFlag(flags)

	if got := catalogPath(flags, config); got != "configured.json" {
		t.Fatalf("expected configured path without the flag, got %q", got)
	}

	if err := flags.Parse([]string{"--catalog", "/tmp/custom.json"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if got := catalogPath(flags, config); got != "/tmp/custom.json" {
		t.Fatalf("expected flag to override config, got %q", got)
	}
}

func TestRecommendCatalogFlag(t *testing.T) {
	flag := recommendCmd.Flags().Lookup("catalog")
	if flag == nil {
		t.Fatal("recommend must define --catalog")
	}
	t.Cleanup(func() {
		flag.Value.Set("")
		flag.Changed = false
	})

	if err := recommendCmd.ParseFlags([]string{"--catalog", "/tmp/custom.json"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if got := catalogPath(recommendCmd.Flags(), &Config{}); got != "/tmp/custom.json" {
		t.Fatalf("recommend --catalog ignored: got %q", got)
	}
	if got := catalogPath(serveCmd.Flags(), &Config{}); got != "" {
		t.Fatalf("serve must not see the recommend flag, got %q", got)
	}
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)

	if got := buf.String(); got != "insurance-advisor version: unknown\n" {
		t.Fatalf("unexpected version output: %q", got)
	}
}
