package handler

import (
	"net/http"

	"sourcing_backend/internal/profiles/repository"
	"sourcing_backend/internal/profiles/service"
	"sourcing_backend/internal/profiles/transport"
	"sourcing_backend/platform/httpkit"
	"sourcing_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
	rg.POST("/payout-account/onboarding", h.StartOnboarding)
	rg.GET("/payout-account/status", h.PayoutStatus)
}

func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	profile, err := h.svc.Get(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponse(profile))
}

func (h *Handler) Update(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	profile, err := h.svc.Update(c.Request.Context(), identity.UserID(), service.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponse(profile))
}

func (h *Handler) StartOnboarding(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	url, err := h.svc.StartOnboarding(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.OnboardingResponse{URL: url})
}

func (h *Handler) PayoutStatus(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	status, err := h.svc.PayoutStatus(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.PayoutStatusResponse{Linked: status.Linked, Onboarded: status.Onboarded})
}

func toResponse(p repository.Profile) transport.ProfileResponse {
	resp := transport.ProfileResponse{
		ID:           p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		Phone:        p.Phone,
		Complete:     p.FirstName != "" && p.LastName != "" && p.Email != "" && p.Phone != "",
		PayoutLinked: p.PayoutAccountID != nil && *p.PayoutAccountID != "",
	}
	if !p.CreatedAt.IsZero() {
		created, updated := p.CreatedAt, p.UpdatedAt
		resp.CreatedAt = &created
		resp.UpdatedAt = &updated
	}
	return resp
}
