package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SummaryResponse struct {
	Schedule    string          `json:"schedule"`
	Total       decimal.Decimal `json:"total"`
	AmountCents int64           `json:"amountCents"`
	LeadCount   int             `json:"leadCount"`
}

type PayoutResponse struct {
	TransferID  string      `json:"transferId"`
	AmountCents int64       `json:"amountCents"`
	Currency    string      `json:"currency"`
	LeadIDs     []uuid.UUID `json:"leadIds"`
}
