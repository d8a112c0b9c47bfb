package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spigell/insurance-advisor/internal/catalog"
	"github.com/spigell/insurance-advisor/internal/profile"
	"github.com/spigell/insurance-advisor/internal/recommend"
)

const promptDone = "Done"

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend insurance plans for a profile",
	Run: func(cmd *cobra.Command, _ []string) {
		runRecommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	addProfileFlags(recommendCmd.Flags())
	recommendCmd.Flags().BoolP("interactive", "i", false, "ask for the profile interactively")
	addCatalogFlag(recommendCmd.Flags())
}

func addProfileFlags(flags *pflag.FlagSet) {
	flags.Int("age", 0, "age in years")
	flags.Int("income", 0, "annual income")
	flags.String("occupation", "", "occupation, e.g. Farmer or \"Salaried Employee\"")
	flags.StringArray("condition", nil, "pre-existing health condition (repeatable)")
	flags.String("marital-status", string(profile.Single), "Single, Married, Divorced or Widowed")
	flags.Int("dependents", 0, "number of dependents")
	flags.String("risk", string(profile.RiskMedium), "risk appetite: Low, Medium or High")
}

// addCatalogFlag registers --catalog. Both commands define it, so it is read per
// command through catalogPath instead of a shared viper binding.
func addCatalogFlag(flags *pflag.FlagSet) {
	flags.String("catalog", "", "path to a JSON plan catalog")
}

// catalogPath prefers an explicitly set --catalog over the configured path.
func catalogPath(flags *pflag.FlagSet, config *Config) string {
	if f := flags.Lookup("catalog"); f != nil && f.Changed {
		return f.Value.String()
	}
	return config.Catalog.Path
}

func runRecommend(cmd *cobra.Command) {
	logger := newCLILogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	path := catalogPath(cmd.Flags(), config)
	plans, err := catalog.Init(path)
	if err != nil {
		logger.Fatal("loading plan catalog", zap.Error(err), zap.String("path", path))
	}

	var values map[string]any
	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		values, err = askProfile()
	} else {
		values, err = profileValuesFromFlags(cmd.Flags())
	}
	if err != nil {
		logger.Fatal("reading profile", zap.Error(err))
	}

	p, err := decodeProfile(values)
	if err != nil {
		logger.Fatal("decoding profile", zap.Error(err))
	}

	result, err := recommend.NewService(plans, logger).Recommend(context.Background(), p)
	if err != nil {
		logger.Fatal("recommending plans", zap.Error(err))
	}

	printRecommendation(cmd.OutOrStdout(), result)
}

func profileValuesFromFlags(flags *pflag.FlagSet) (map[string]any, error) {
	values := map[string]any{}
	for key, flag := range map[string]string{
		"age":            "age",
		"income":         "income",
		"occupation":     "occupation",
		"marital_status": "marital-status",
		"dependents":     "dependents",
		"risk_appetite":  "risk",
	} {
		f := flags.Lookup(flag)
		if f == nil {
			return nil, fmt.Errorf("flag %s is not defined", flag)
		}
		values[key] = f.Value.String()
	}

	conditions, err := flags.GetStringArray("condition")
	if err != nil {
		return nil, err
	}
	values["health_conditions"] = conditions

	return values, nil
}

// decodeProfile builds a profile from loosely typed answers, normalising the
// case of labels matched exactly downstream.
func decodeProfile(values map[string]any) (profile.Profile, error) {
	var p profile.Profile

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &p,
	})
	if err != nil {
		return p, err
	}
	if err := decoder.Decode(values); err != nil {
		return p, err
	}

	p.Occupation = profile.Occupation(title(string(p.Occupation)))
	p.MaritalStatus = profile.MaritalStatus(title(string(p.MaritalStatus)))
	p.RiskAppetite = profile.RiskAppetite(title(string(p.RiskAppetite)))

	conditions := make([]string, 0, len(p.HealthConditions))
	for _, c := range p.HealthConditions {
		if c = title(c); c != "" {
			conditions = append(conditions, c)
		}
	}
	p.HealthConditions = conditions

	return p, p.Validate()
}

func title(s string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
}

func askProfile() (map[string]any, error) {
	values := map[string]any{}

	for _, q := range []struct {
		key   string
		label string
	}{
		{key: "age", label: "Age"},
		{key: "income", label: "Annual income"},
		{key: "dependents", label: "Number of dependents"},
	} {
		answer, err := (&promptui.Prompt{Label: q.label, Validate: validateCount}).Run()
		if err != nil {
			return nil, err
		}
		values[q.key] = answer
	}

	for _, q := range []struct {
		key   string
		label string
		items []string
	}{
		{key: "occupation", label: "Occupation", items: labels(profile.Occupations)},
		{key: "marital_status", label: "Marital status", items: labels(profile.MaritalStatuses)},
		{key: "risk_appetite", label: "Risk appetite", items: labels(profile.RiskAppetites)},
	} {
		_, answer, err := (&promptui.Select{Label: q.label, Items: q.items}).Run()
		if err != nil {
			return nil, err
		}
		values[q.key] = answer
	}

	conditions, err := askConditions()
	if err != nil {
		return nil, err
	}
	values["health_conditions"] = conditions

	return values, nil
}

func askConditions() ([]string, error) {
	var picked []string
	for {
		items := []string{promptDone}
		for _, c := range profile.HealthConditions {
			if c != "None" && !contains(picked, c) {
				items = append(items, c)
			}
		}
		if len(items) == 1 {
			return picked, nil
		}

		_, answer, err := (&promptui.Select{Label: "Pre-existing conditions", Items: items}).Run()
		if err != nil {
			return nil, err
		}
		if answer == promptDone {
			return picked, nil
		}
		picked = append(picked, answer)
	}
}

func validateCount(input string) error {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return errors.New("enter a whole number")
	}
	if n < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func labels[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func printRecommendation(w io.Writer, result *recommend.Result) {
	if len(result.Tags) > 0 {
		fmt.Fprintf(w, "Preferred plan types: %s\n\n", strings.Join(result.Tags, ", "))
	}

	if result.Empty() {
		fmt.Fprintln(w, recommend.NoMatchesMessage)
		return
	}

	for i, plan := range result.Plans {
		fmt.Fprintf(w, "%d. %s\n", i+1, plan.Type)
		fmt.Fprintf(w, "   Coverage: %s\n", plan.Coverage)
		fmt.Fprintf(w, "   Age %d-%d, income %d-%d\n", plan.AgeRange.Min, plan.AgeRange.Max, plan.IncomeRange.Min, plan.IncomeRange.Max)
		fmt.Fprintf(w, "   %s\n", plan.Description)
	}
}
