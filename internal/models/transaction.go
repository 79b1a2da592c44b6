package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kinds. Every funds movement here is notional: a ledger row plus a
// wallet balance flip, never a real transfer.
const (
	TransactionKindEscrowFund    = "escrow_fund"
	TransactionKindEscrowRelease = "escrow_release"
	TransactionKindEscrowRefund  = "escrow_refund"
)

// Transaction directions
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	EscrowID    *uuid.UUID `json:"escrow_id,omitempty"`
	Kind        string     `json:"kind"`
	Direction   string     `json:"direction"`
	Amount      string     `json:"amount"` // numeric as string
	Currency    string     `json:"currency"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}

// WalletBalance is the notional per-currency position of a user.
type WalletBalance struct {
	UserID    uuid.UUID `json:"user_id"`
	Currency  string    `json:"currency"`
	Available string    `json:"available"`
	InEscrow  string    `json:"in_escrow"`
	UpdatedAt time.Time `json:"updated_at"`
}
