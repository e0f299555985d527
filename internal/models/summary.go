package models

import "github.com/shopspring/decimal"

// CategoryTotal is the summed amount of one (type, category) pair.
type CategoryTotal struct {
	Type     TxType          `json:"type"`
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Balance is the running balance of an owner's ledger.
type Balance struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}
