package ledger

import (
	"sort"

	"github.com/crucial707/ledger/internal/models"
	"github.com/shopspring/decimal"
)

type categoryKey struct {
	typ      models.TxType
	category string
}

// Categorize sums amounts per (type, category) and orders the groups by total, largest
// first. Ties are broken by type, then category. Empty input yields an empty slice.
func Categorize(txs []models.Transaction) []models.CategoryTotal {
	index := make(map[categoryKey]int)
	out := make([]models.CategoryTotal, 0)
	for _, t := range txs {
		k := categoryKey{typ: t.Type, category: t.Category}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, models.CategoryTotal{Type: t.Type, Category: t.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(t.Amount)
		out[i].Count++
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Category < b.Category
	})
	return out
}

// Summarize returns income, expense and their difference.
func Summarize(txs []models.Transaction) models.Balance {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case models.TypeIncome:
			income = income.Add(t.Amount)
		case models.TypeExpense:
			expense = expense.Add(t.Amount)
		}
	}
	return models.Balance{Income: income, Expense: expense, Net: income.Sub(expense)}
}
