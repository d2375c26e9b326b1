package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs
type CreateLeadRequest struct {
	Title         string    `json:"title" form:"title" validate:"required,min=1,max=200"`
	Address       string    `json:"address" form:"address" validate:"required,min=1,max=300"`
	Phone         string    `json:"phone" form:"phone" validate:"required,min=5,max=30"`
	Notes         string    `json:"notes,omitempty" form:"notes" validate:"max=4000"`
	Condition     string    `json:"condition,omitempty" form:"condition" validate:"omitempty,max=50"`
	PurchasePrice Money     `json:"purchasePrice" form:"purchasePrice"`
	RetailPrice   *Money    `json:"retailPrice,omitempty" form:"retailPrice"`
	PickupStart   time.Time `json:"pickupStart" form:"pickupStart" time_format:"2006-01-02T15:04:05Z07:00" validate:"required"`
	PickupEnd     time.Time `json:"pickupEnd" form:"pickupEnd" time_format:"2006-01-02T15:04:05Z07:00" validate:"required,gtfield=PickupStart"`
}

type UpdateLeadRequest struct {
	Title            *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Address          *string    `json:"address,omitempty" validate:"omitempty,min=1,max=300"`
	Phone            *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	Notes            *string    `json:"notes,omitempty" validate:"omitempty,max=4000"`
	Condition        *string    `json:"condition,omitempty" validate:"omitempty,max=50"`
	PurchasePrice    *Money     `json:"purchasePrice,omitempty"`
	RetailPrice      *Money     `json:"retailPrice,omitempty"`
	ClearRetailPrice bool       `json:"clearRetailPrice,omitempty"`
	PickupStart      *time.Time `json:"pickupStart,omitempty"`
	PickupEnd        *time.Time `json:"pickupEnd,omitempty"`
	// Status is admin only.
	Status            *string           `json:"status,omitempty" validate:"omitempty,lead_status"`
	Sale              *SaleRequest      `json:"sale,omitempty"`
	Rejection         *RejectionRequest `json:"rejection,omitempty"`
	ExpectedUpdatedAt *time.Time        `json:"expectedUpdatedAt,omitempty"`
}

type UpdateLeadStatusRequest struct {
	Status            string            `json:"status" validate:"required,lead_status"`
	Sale              *SaleRequest      `json:"sale,omitempty"`
	Rejection         *RejectionRequest `json:"rejection,omitempty"`
	ExpectedUpdatedAt *time.Time        `json:"expectedUpdatedAt,omitempty"`
}

type SaleRequest struct {
	SaleDate  string `json:"saleDate" validate:"required,datetime=2006-01-02"`
	SalePrice Money  `json:"salePrice"`
}

type RejectionRequest struct {
	Reason string `json:"reason" validate:"required,rejection_reason"`
	Notes  string `json:"notes,omitempty" validate:"max=1000"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,lead_status"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type EvaluateLeadRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	PurchasePrice Money  `json:"purchasePrice"`
	RetailPrice   *Money `json:"retailPrice,omitempty"`
	Condition     string `json:"condition,omitempty" validate:"max=50"`
	Notes         string `json:"notes,omitempty" validate:"max=4000"`
}

// Response DTOs
type SourcerResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`
}

type LeadResponse struct {
	ID                  uuid.UUID        `json:"id"`
	Sourcer             SourcerResponse  `json:"sourcer"`
	Title               string           `json:"title"`
	Address             string           `json:"address"`
	Phone               string           `json:"phone"`
	Notes               string           `json:"notes,omitempty"`
	Condition           string           `json:"condition,omitempty"`
	PurchasePrice       decimal.Decimal  `json:"purchasePrice"`
	RetailPrice         *decimal.Decimal `json:"retailPrice,omitempty"`
	SalePrice           *decimal.Decimal `json:"salePrice,omitempty"`
	SaleDate            *string          `json:"saleDate,omitempty"`
	PickupStart         time.Time        `json:"pickupStart"`
	PickupEnd           time.Time        `json:"pickupEnd"`
	Status              string           `json:"status"`
	RejectionReason     *string          `json:"rejectionReason,omitempty"`
	OnCalendar          bool             `json:"onCalendar"`
	CommissionAmount    *decimal.Decimal `json:"commissionAmount,omitempty"`
	CommissionPaid      bool             `json:"commissionPaid"`
	DevCommissionAmount *decimal.Decimal `json:"devCommissionAmount,omitempty"`
	DevCommissionPaid   bool             `json:"devCommissionPaid"`
	ImageURL            *string          `json:"imageUrl,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// LeadMutationResponse is returned by writes that touch the calendar.
type LeadMutationResponse struct {
	Lead           LeadResponse `json:"lead"`
	CalendarAction string       `json:"calendarAction"`
	CalendarSynced bool         `json:"calendarSynced"`
}

type RejectionReasonResponse struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type ResaleRangeResponse struct {
	Low  decimal.Decimal `json:"low"`
	High decimal.Decimal `json:"high"`
}

type EvaluateLeadResponse struct {
	Verdict              string               `json:"verdict"`
	EstimatedResaleRange *ResaleRangeResponse `json:"estimatedResaleRange,omitempty"`
	Reasoning            string               `json:"reasoning,omitempty"`
	Warning              string               `json:"warning,omitempty"`
}
