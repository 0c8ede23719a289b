package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the outcome state of a paper execution.
type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// Transaction records one paper execution attempt. The referenced opportunity
// may have expired from the store since; the transaction remains valid as a
// historical record. Transactions are immutable after creation -- a retry
// creates a new transaction rather than mutating an existing one.
type Transaction struct {
	ID            string
	OpportunityID string
	Status        TxStatus
	TxHash        string
	ActualProfit  *decimal.Decimal
	GasUsed       *decimal.Decimal
	ExecutedAt    time.Time
}
