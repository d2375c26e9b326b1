package domain

import (
	"github.com/shopspring/decimal"
)

// ActorClass selects which commission schedule a sourcer's sales credit.
type ActorClass int

const (
	ActorNormal ActorClass = iota
	ActorPrivileged
)

func (c ActorClass) String() string {
	if c == ActorPrivileged {
		return "privileged"
	}
	return "normal"
}

var hundred = decimal.NewFromInt(100)

// ComputeCommission returns profit * rate, or zero when the sale made no profit.
// The result keeps full precision; round with RoundCents at payout time.
func ComputeCommission(salePrice, purchasePrice, rate decimal.Decimal) decimal.Decimal {
	profit := salePrice.Sub(purchasePrice)
	if !profit.IsPositive() {
		return decimal.Zero
	}
	return profit.Mul(rate)
}

// RoundCents rounds to currency granularity, half-up.
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	// decimal rounds half away from zero, which is half-up for the
	// non-negative amounts commissions produce.
	return amount.Round(2)
}

// ToCents converts an amount to integer minor units, rounding half-up.
func ToCents(amount decimal.Decimal) int64 {
	return RoundCents(amount).Mul(hundred).IntPart()
}

// CommissionEntry is the commission view of one lead.
type CommissionEntry struct {
	Status              Status
	CommissionAmount    *decimal.Decimal
	CommissionPaid      bool
	DevCommissionAmount *decimal.Decimal
	DevCommissionPaid   bool
}

// Unpaid returns the amount the class is owed for this lead, if any.
func (e CommissionEntry) Unpaid(class ActorClass) (decimal.Decimal, bool) {
	if e.Status != StatusSold {
		return decimal.Zero, false
	}
	amount, paid := e.CommissionAmount, e.CommissionPaid
	if class == ActorPrivileged {
		amount, paid = e.DevCommissionAmount, e.DevCommissionPaid
	}
	if amount == nil || paid {
		return decimal.Zero, false
	}
	return *amount, true
}

// ComputeUnpaidTotal sums the class's unpaid commission over sold leads.
func ComputeUnpaidTotal(entries []CommissionEntry, class ActorClass) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if amount, ok := e.Unpaid(class); ok {
			total = total.Add(amount)
		}
	}
	return total
}

// CommissionFields is the commission state a save writes to a lead.
type CommissionFields struct {
	CommissionAmount    *decimal.Decimal
	CommissionPaid      bool
	DevCommissionAmount *decimal.Decimal
	DevCommissionPaid   bool
}

// SoldCommission credits the commission to exactly one schedule, chosen by class.
func SoldCommission(class ActorClass, amount decimal.Decimal) CommissionFields {
	if class == ActorPrivileged {
		return CommissionFields{DevCommissionAmount: &amount}
	}
	return CommissionFields{CommissionAmount: &amount}
}
