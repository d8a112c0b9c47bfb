package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/insurance-advisor/internal/claims"
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Show how to file a claim for an insurance type",
	Run: func(cmd *cobra.Command, _ []string) {
		logger := newCLILogger()

		insuranceType, _ := cmd.Flags().GetString("type")
		mode, _ := cmd.Flags().GetString("mode")

		if err := printClaimGuide(cmd.OutOrStdout(), claims.Builtin(), insuranceType, mode); err != nil {
			logger.Fatal("looking up claim guide", zap.Error(err), zap.String("type", insuranceType))
		}
	},
}

func init() {
	rootCmd.AddCommand(claimsCmd)

	claimsCmd.Flags().StringP("type", "t", "", "insurance type, e.g. \"Health Insurance\"")
	claimsCmd.Flags().StringP("mode", "m", claims.ModeCashless, "claim mode for health insurance: Cashless or Reimbursement")
}

func printClaimGuide(w io.Writer, book *claims.Book, insuranceType, mode string) error {
	if strings.TrimSpace(insuranceType) == "" {
		fmt.Fprintln(w, "Available insurance types:")
		for _, t := range book.Types() {
			fmt.Fprintf(w, "  - %s\n", t)
		}
		return nil
	}

	guide, err := book.Lookup(insuranceType, mode)
	if err != nil {
		return err
	}

	header := guide.Type
	if guide.Mode != "" {
		header += " (" + guide.Mode + ")"
	}
	fmt.Fprintf(w, "How to file a %s claim:\n", header)

	for i, step := range guide.Steps {
		fmt.Fprintf(w, "%d. %s\n", i+1, step)
	}

	if guide.Helpline != "" {
		fmt.Fprintf(w, "\nHelpline: %s\n", guide.Helpline)
	}
	for _, link := range guide.Links {
		fmt.Fprintf(w, "%s: %s\n", link.Title, link.URL)
	}
	if guide.Notes != "" {
		fmt.Fprintf(w, "\nNote: %s\n", guide.Notes)
	}

	return nil
}
