package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apphttp "sourcing_backend/internal/http"
	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/internal/leads/lifecycle"
	"sourcing_backend/internal/leads/management"
	"sourcing_backend/internal/leads/scoring"
	"sourcing_backend/internal/leads/transport"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/httpkit"
	"sourcing_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest  = "invalid request"
	maxMultipartMemory = 10 << 20
)

type Handler struct {
	svc *management.Service
	val *validator.Validator
}

func New(svc *management.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/evaluate", h.Evaluate)
	rg.GET("/rejection-reasons", h.RejectionReasons)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/status", httpkit.RequireRole(httpkit.RoleAdmin), h.UpdateStatus)
	rg.POST("/:id/image", h.ReplaceImage)
}

// Create accepts JSON or multipart/form-data with an optional "image" file.
func (h *Handler) Create(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}

	var req transport.CreateLeadRequest
	var image *management.ImageUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
			return
		}
		upload, closeFn, err := imageFromForm(c)
		if httpkit.HandleError(c, err) {
			return
		}
		defer closeFn()
		image = upload
	} else if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), actor, management.CreateInput{
		Title:         req.Title,
		Address:       req.Address,
		Phone:         req.Phone,
		Notes:         req.Notes,
		Condition:     req.Condition,
		PurchasePrice: req.PurchasePrice.Decimal,
		RetailPrice:   req.RetailPrice.Ptr(),
		PickupStart:   req.PickupStart,
		PickupEnd:     req.PickupEnd,
		Image:         image,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, management.ToLeadResponse(lead))
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}

	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	in := management.ListInput{Page: req.Page, PageSize: req.PageSize}
	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		in.Status = &status
	}

	leads, total, err := h.svc.List(c.Request.Context(), actor, in)
	if httpkit.HandleError(c, err) {
		return
	}

	page, pageSize := in.Page, in.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	httpkit.OK(c, management.ToLeadListResponse(leads, total, page, min(pageSize, 100)))
}

func (h *Handler) GetByID(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, management.ToLeadResponse(lead))
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	in := management.UpdateInput{
		Edits: lifecycle.Edits{
			Title:            req.Title,
			Address:          req.Address,
			Phone:            req.Phone,
			Notes:            req.Notes,
			Condition:        req.Condition,
			PurchasePrice:    req.PurchasePrice.Ptr(),
			RetailPrice:      req.RetailPrice.Ptr(),
			ClearRetailPrice: req.ClearRetailPrice,
			PickupStart:      req.PickupStart,
			PickupEnd:        req.PickupEnd,
		},
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	}
	if req.Status != nil {
		status, err := domain.ParseStatus(*req.Status)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		in.Status = &status
	}
	var err error
	if in.Sale, err = toSaleInput(req.Sale); httpkit.HandleError(c, err) {
		return
	}
	in.Rejection = toRejectionInput(req.Rejection)

	out, err := h.svc.Update(c.Request.Context(), actor, id, in)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, management.ToMutationResponse(out))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	sale, err := toSaleInput(req.Sale)
	if httpkit.HandleError(c, err) {
		return
	}

	out, err := h.svc.ChangeStatus(c.Request.Context(), actor, id, management.StatusInput{
		Status:            status,
		Sale:              sale,
		Rejection:         toRejectionInput(req.Rejection),
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, management.ToMutationResponse(out))
}

func (h *Handler) ReplaceImage(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	upload, closeFn, err := imageFromForm(c)
	if httpkit.HandleError(c, err) {
		return
	}
	defer closeFn()
	if upload == nil {
		httpkit.HandleError(c, apperr.Validation("image is required").WithCode("image_required"))
		return
	}

	out, err := h.svc.ReplaceImage(c.Request.Context(), actor, id, *upload)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, management.ToMutationResponse(out))
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := apphttp.ActorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), actor, id)) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Evaluate(c *gin.Context) {
	var req transport.EvaluateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	eval, err := h.svc.Evaluate(c.Request.Context(), scoring.Input{
		Title:         req.Title,
		PurchasePrice: req.PurchasePrice.Decimal,
		RetailPrice:   req.RetailPrice.Ptr(),
		Condition:     req.Condition,
		Notes:         req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, management.ToEvaluateResponse(eval))
}

func (h *Handler) RejectionReasons(c *gin.Context) {
	httpkit.OK(c, management.ToRejectionReasons(domain.RejectionReasons()))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

// imageFromForm opens the optional "image" part. The returned func closes it.
func imageFromForm(c *gin.Context) (*management.ImageUpload, func(), error) {
	noop := func() {}
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, apperr.BadRequest("invalid multipart form").WithCode("invalid_form")
	}
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, apperr.BadRequest("invalid image upload").WithCode("invalid_form")
	}
	file, err := header.Open()
	if err != nil {
		return nil, noop, apperr.BadRequest("invalid image upload").WithCode("invalid_form")
	}
	return &management.ImageUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}, func() { _ = file.Close() }, nil
}

func toSaleInput(req *transport.SaleRequest) (*lifecycle.SaleInput, error) {
	if req == nil {
		return nil, nil
	}
	date, err := time.Parse("2006-01-02", req.SaleDate)
	if err != nil {
		return nil, apperr.Validation("sale date must be YYYY-MM-DD").WithCode("invalid_sale_date")
	}
	return &lifecycle.SaleInput{Date: date, Price: req.SalePrice.Decimal}, nil
}

func toRejectionInput(req *transport.RejectionRequest) *lifecycle.RejectionInput {
	if req == nil {
		return nil
	}
	return &lifecycle.RejectionInput{Reason: req.Reason, Notes: req.Notes}
}
