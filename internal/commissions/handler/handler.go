package handler

import (
	"sourcing_backend/internal/commissions/service"
	"sourcing_backend/internal/commissions/transport"
	apphttp "sourcing_backend/internal/http"
	"sourcing_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the summary and, behind the payout limiter, the payout route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, payoutLimiter gin.HandlerFunc) {
	rg.GET("/summary", h.Summary)
	rg.POST("/payout", payoutLimiter, h.RequestPayout)
}

func (h *Handler) Summary(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SummaryResponse{
		Schedule:    summary.Class.String(),
		Total:       summary.Total,
		AmountCents: summary.AmountCents,
		LeadCount:   summary.LeadCount,
	})
}

func (h *Handler) RequestPayout(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}

	payout, err := h.svc.RequestPayout(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.PayoutResponse{
		TransferID:  payout.TransferID,
		AmountCents: payout.AmountCents,
		Currency:    payout.Currency,
		LeadIDs:     payout.LeadIDs,
	})
}
