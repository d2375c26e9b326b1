package handler

import (
	"sourcing_backend/internal/appointments/service"
	"sourcing_backend/internal/appointments/transport"
	"sourcing_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for pickup availability
type Handler struct {
	svc *service.Service
}

// New creates a new appointments handler
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the pickup routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/slots", h.ListSlots)
}

// ListSlots returns the currently bookable pickup slots.
func (h *Handler) ListSlots(c *gin.Context) {
	slots, err := h.svc.AvailableSlots(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.AvailableSlotsResponse{
		Timezone: h.svc.Location().String(),
		Slots:    make([]transport.TimeSlot, 0, len(slots)),
	}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, transport.TimeSlot{StartTime: s.Start, EndTime: s.End})
	}
	c.Header("Cache-Control", "no-store")
	httpkit.OK(c, resp)
}
