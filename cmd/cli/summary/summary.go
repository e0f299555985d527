package summary

import (
	"fmt"
	"net/url"

	"github.com/crucial707/ledger/cmd/cli/client"
	"github.com/crucial707/ledger/cmd/cli/output"
	"github.com/crucial707/ledger/cmd/cli/root"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// InitSummary registers the `summary` command group.
func InitSummary(rootCmd *cobra.Command) {
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate views of your ledger",
	}
	summaryCmd.AddCommand(categoriesCmd(), balanceCmd())
	rootCmd.AddCommand(summaryCmd)
}

func categoriesCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Totals per category and type (default: last 30 days)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			q := url.Values{}
			if from != "" {
				q.Set("from", from)
			}
			if to != "" {
				q.Set("to", to)
			}
			path := "/summary/categories"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var resp struct {
				From       string `json:"from"`
				To         string `json:"to"`
				Categories []struct {
					Type     string          `json:"type"`
					Category string          `json:"category"`
					Total    decimal.Decimal `json:"total"`
					Count    int             `json:"count"`
				} `json:"categories"`
			}
			if err := c.Do(cmd.Context(), "GET", path, nil, &resp); err != nil {
				return err
			}
			if root.JSONOutput(cmd) {
				return output.RenderJSON(cmd.OutOrStdout(), resp)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s to %s\n", resp.From, resp.To)
			rows := make([][]interface{}, 0, len(resp.Categories))
			for _, ct := range resp.Categories {
				rows = append(rows, []interface{}{ct.Category, ct.Type, ct.Count, ct.Total.StringFixed(2)})
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"Category", "Type", "Count", "Total"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD")
	return cmd
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Income, expense and net over all transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var b struct {
				Income  decimal.Decimal `json:"income"`
				Expense decimal.Decimal `json:"expense"`
				Net     decimal.Decimal `json:"net"`
			}
			if err := c.Do(cmd.Context(), "GET", "/summary/balance", nil, &b); err != nil {
				return err
			}
			if root.JSONOutput(cmd) {
				return output.RenderJSON(cmd.OutOrStdout(), b)
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"Income", "Expense", "Net"},
				[][]interface{}{{b.Income.StringFixed(2), b.Expense.StringFixed(2), b.Net.StringFixed(2)}})
			return nil
		},
	}
}
