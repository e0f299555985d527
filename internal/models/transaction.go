package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// TxType discriminates income from expense. Amounts are always positive.
type TxType string

const (
	TypeIncome  TxType = "income"
	TypeExpense TxType = "expense"
)

// MaxCategoryLen bounds the free-text category label, in characters.
const MaxCategoryLen = 100

// Amount bounds. Every backend stores an amount inside them exactly; Mongo's
// Decimal128 holds at most 34 significant digits.
const (
	MaxAmountDigits   = 34
	MaxAmountDecimals = 18
	maxAmountExponent = 15
)

// MaxAmount is the exclusive upper bound of a transaction amount.
var MaxAmount = decimal.New(1, maxAmountExponent)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is one ledger entry. OwnerID is set at creation and never changes.
type Transaction struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Type      TxType          `json:"type"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransactionFields are the caller-controlled values of a new transaction.
type TransactionFields struct {
	Amount   decimal.Decimal
	Category string
	Type     TxType
	Date     time.Time
}

// Validate checks a fully populated set of fields.
func (f TransactionFields) Validate() error {
	fields := make(map[string]string)
	if msg := checkAmount(f.Amount); msg != "" {
		fields["amount"] = msg
	}
	if msg := checkCategory(f.Category); msg != "" {
		fields["category"] = msg
	}
	if !f.Type.Valid() {
		fields["type"] = "must be income or expense"
	}
	if f.Date.IsZero() {
		fields["date"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// TransactionPatch carries a partial update. Nil fields are left untouched.
type TransactionPatch struct {
	Amount   *decimal.Decimal
	Category *string
	Type     *TxType
	Date     *time.Time
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Amount == nil && p.Category == nil && p.Type == nil && p.Date == nil
}

// Validate checks every field present in the patch.
func (p TransactionPatch) Validate() error {
	if p.Empty() {
		return &ValidationError{Fields: map[string]string{"body": "no fields to update"}}
	}
	fields := make(map[string]string)
	if p.Amount != nil {
		if msg := checkAmount(*p.Amount); msg != "" {
			fields["amount"] = msg
		}
	}
	if p.Category != nil {
		if msg := checkCategory(*p.Category); msg != "" {
			fields["category"] = msg
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		fields["type"] = "must be income or expense"
	}
	if p.Date != nil && p.Date.IsZero() {
		fields["date"] = "invalid"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Apply returns t with the patch applied. Used by backends that cannot update in place.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

func checkAmount(d decimal.Decimal) string {
	if !d.IsPositive() {
		return "must be greater than zero"
	}
	// Exponent before anything that rescales: 1e50000000 is a one-digit coefficient.
	exp := d.Exponent()
	if exp > maxAmountExponent {
		return "out of range"
	}
	if exp < -MaxAmountDecimals {
		return "too many decimal places"
	}
	if d.NumDigits() > MaxAmountDigits || d.GreaterThanOrEqual(MaxAmount) {
		return "out of range"
	}
	return ""
}

func checkCategory(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return "required"
	}
	if utf8.RuneCountInString(c) > MaxCategoryLen {
		return "too long"
	}
	return ""
}
