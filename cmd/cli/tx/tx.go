package tx

import (
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/ledger/cmd/cli/client"
	"github.com/crucial707/ledger/cmd/cli/output"
	"github.com/crucial707/ledger/cmd/cli/root"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type transaction struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Type      string          `json:"type"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"created_at"`
}

func (t transaction) row() []interface{} {
	return []interface{}{t.ID, t.Date.Format(time.DateOnly), t.Type, t.Category, t.Amount.StringFixed(2)}
}

var headers = []string{"ID", "Date", "Type", "Category", "Amount"}

// InitTx registers the `tx` command group.
func InitTx(rootCmd *cobra.Command) {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Record and manage transactions",
	}

	txCmd.AddCommand(
		addCmd(),
		listCmd(),
		updateCmd(),
		deleteCmd(),
	)

	rootCmd.AddCommand(txCmd)
}

func render(cmd *cobra.Command, v any, rows [][]interface{}) error {
	if root.JSONOutput(cmd) {
		return output.RenderJSON(cmd.OutOrStdout(), v)
	}
	output.RenderTable(cmd.OutOrStdout(), headers, rows)
	return nil
}

// ==========================
// ADD
// ==========================
func addCmd() *cobra.Command {
	var amount, category, typ, date string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  ledger tx add --amount 20 --category food
  ledger tx add --amount 1500 --category salary --type income --date 2024-03-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("--amount must be a number, got %q", amount)
			}
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			payload := map[string]string{"amount": amount, "category": category}
			if typ != "" {
				payload["type"] = typ
			}
			if date != "" {
				payload["date"] = date
			}

			var resp struct {
				Message     string      `json:"message"`
				Transaction transaction `json:"transaction"`
			}
			if err := c.Do(cmd.Context(), "POST", "/transaction", payload, &resp); err != nil {
				return err
			}
			return render(cmd, resp.Transaction, [][]interface{}{resp.Transaction.row()})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "Amount, always positive")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&typ, "type", "", "income or expense (default expense)")
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default now)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// ==========================
// LIST
// ==========================
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var txs []transaction
			if err := c.Do(cmd.Context(), "GET", "/transactions", nil, &txs); err != nil {
				return err
			}
			if len(txs) == 0 && !root.JSONOutput(cmd) {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions recorded.")
				return nil
			}

			rows := make([][]interface{}, 0, len(txs))
			for _, t := range txs {
				rows = append(rows, t.row())
			}
			return render(cmd, txs, rows)
		},
	}
}

// ==========================
// UPDATE
// ==========================
func updateCmd() *cobra.Command {
	var amount, category, typ, date string

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := map[string]string{}
			for name, v := range map[string]string{"amount": amount, "category": category, "type": typ, "date": date} {
				if cmd.Flags().Changed(name) {
					patch[name] = v
				}
			}
			if len(patch) == 0 {
				return errors.New("nothing to update: pass at least one of --amount, --category, --type, --date")
			}

			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var t transaction
			if err := c.Do(cmd.Context(), "PATCH", "/transactions/"+args[0], patch, &t); err != nil {
				return err
			}
			return render(cmd, t, [][]interface{}{t.row()})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "New amount")
	cmd.Flags().StringVar(&category, "category", "", "New category")
	cmd.Flags().StringVar(&typ, "type", "", "New type, income or expense")
	cmd.Flags().StringVar(&date, "date", "", "New date as YYYY-MM-DD")
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			if err := c.Do(cmd.Context(), "DELETE", "/transactions/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Transaction deleted.")
			return nil
		},
	}
}
