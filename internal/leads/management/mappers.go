package management

import (
	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/internal/leads/lifecycle"
	"sourcing_backend/internal/leads/repository"
	"sourcing_backend/internal/leads/scoring"
	"sourcing_backend/internal/leads/transport"

	"github.com/shopspring/decimal"
)

// ToLeadResponse maps a stored lead to its API shape.
func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID: lead.ID,
		Sourcer: transport.SourcerResponse{
			ID:    lead.SourcerID,
			Name:  lead.Sourcer.FullName(),
			Email: lead.Sourcer.Email,
			Phone: lead.Sourcer.Phone,
		},
		Title:               lead.Title,
		Address:             lead.Address,
		Phone:               lead.Phone,
		Notes:               lead.Notes,
		Condition:           lead.Condition,
		PurchasePrice:       lead.PurchasePrice,
		RetailPrice:         lead.RetailPrice,
		SalePrice:           lead.SalePrice,
		PickupStart:         lead.PickupStart,
		PickupEnd:           lead.PickupEnd,
		Status:              lead.Status.String(),
		RejectionReason:     lead.RejectionReason,
		OnCalendar:          lead.CalendarEventID != nil,
		CommissionAmount:    roundedPtr(lead.CommissionAmount),
		CommissionPaid:      lead.CommissionPaid,
		DevCommissionAmount: roundedPtr(lead.DevCommissionAmount),
		DevCommissionPaid:   lead.DevCommissionPaid,
		ImageURL:            lead.ImageURL,
		CreatedAt:           lead.CreatedAt,
		UpdatedAt:           lead.UpdatedAt,
	}
	if lead.SaleDate != nil {
		d := lead.SaleDate.Format("2006-01-02")
		resp.SaleDate = &d
	}
	return resp
}

// ToLeadListResponse maps a page of leads.
func ToLeadListResponse(leads []repository.Lead, total, page, pageSize int) transport.LeadListResponse {
	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead))
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// ToMutationResponse maps a lifecycle outcome.
func ToMutationResponse(out lifecycle.Outcome) transport.LeadMutationResponse {
	return transport.LeadMutationResponse{
		Lead:           ToLeadResponse(out.Lead),
		CalendarAction: out.CalendarAction.String(),
		CalendarSynced: out.CalendarSynced,
	}
}

// ToEvaluateResponse maps an advisor evaluation.
func ToEvaluateResponse(eval scoring.Evaluation) transport.EvaluateLeadResponse {
	resp := transport.EvaluateLeadResponse{
		Verdict:   string(eval.Verdict),
		Reasoning: eval.Reasoning,
		Warning:   eval.Warning,
	}
	if r := eval.EstimatedResaleRange; r != nil {
		resp.EstimatedResaleRange = &transport.ResaleRangeResponse{Low: r.Low, High: r.High}
	}
	return resp
}

// ToRejectionReasons maps the rejection taxonomy.
func ToRejectionReasons(reasons []domain.RejectionReason) []transport.RejectionReasonResponse {
	out := make([]transport.RejectionReasonResponse, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, transport.RejectionReasonResponse{Code: r.Code, Label: r.Label})
	}
	return out
}

func roundedPtr(amount *decimal.Decimal) *decimal.Decimal {
	if amount == nil {
		return nil
	}
	r := domain.RoundCents(*amount)
	return &r
}
