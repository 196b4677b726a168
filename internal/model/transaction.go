package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankEntry is one normalized bank statement row.
type BankEntry struct {
	Source       string          `json:"source"` // account label
	Row          int             `json:"row"`    // 0-based grid row
	Date         time.Time       `json:"date"`
	Counterparty string          `json:"counterparty"`
	Memo         string          `json:"memo"`
	Amount       decimal.Decimal `json:"amount"`
}

// TaxInvoice is one normalized tax invoice row.
type TaxInvoice struct {
	Row          int             `json:"row"`
	Date         time.Time       `json:"date"`
	Counterparty string          `json:"counterparty"`
	Item         string          `json:"item,omitempty"` // empty when no item column is mapped
	Amount       decimal.Decimal `json:"amount"`
}
