package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/asbjj/shop-api/internal/dto"
	"github.com/asbjj/shop-api/internal/middleware"
	"github.com/asbjj/shop-api/internal/service"
)

type CouponHandler struct {
	couponService *service.CouponService
}

func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// Apply previews a coupon against the session's cart. It never consumes a
// redemption; that happens at checkout.
func (h *CouponHandler) Apply(c *gin.Context) {
	session := middleware.GetSessionToken(c)

	var req dto.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.couponService.Apply(c.Request.Context(), session, req.Code)
	if err != nil {
		status, msg := couponError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CouponHandler) Create(c *gin.Context) {
	var req dto.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.couponService.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *CouponHandler) List(c *gin.Context) {
	resp, err := h.couponService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupons": resp})
}

func (h *CouponHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon ID"})
		return
	}

	if err := h.couponService.Deactivate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func couponError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		return http.StatusNotFound, "coupon not found"
	case errors.Is(err, service.ErrCouponInactive):
		return http.StatusConflict, "coupon is not active"
	case errors.Is(err, service.ErrCouponExpired):
		return http.StatusConflict, "coupon is expired or not yet valid"
	case errors.Is(err, service.ErrCouponLimitReached):
		return http.StatusConflict, "coupon usage limit reached"
	case errors.Is(err, service.ErrCouponBelowMinimum):
		return http.StatusConflict, "cart subtotal is below the coupon minimum"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
