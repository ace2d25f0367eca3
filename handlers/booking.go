package handlers

import (
	"net/http"
	"strings"

	"localserve/lifecycle"
	"localserve/middleware"
	"localserve/models"
	"localserve/services/booking"
	"localserve/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking store over HTTP.
type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

// CreateBookingHandler handles POST /bookings.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, booking.CodeValidation, "invalid input: "+err.Error())
		return
	}

	b, err := h.Service.CreateBooking(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ListBookingsHandler handles GET /bookings?userId=&providerId=.
func (h *BookingHandler) ListBookingsHandler(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	filter := models.BookingFilter{
		UserID:     c.Query("userId"),
		ProviderID: c.Query("providerId"),
	}
	h.list(c, caller, filter)
}

// AdminListBookingsHandler handles GET /admin/bookings.
func (h *BookingHandler) AdminListBookingsHandler(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	h.list(c, caller, models.BookingFilter{})
}

func (h *BookingHandler) list(c *gin.Context, caller utils.Principal, filter models.BookingFilter) {
	bookings, err := h.Service.ListBookings(c.Request.Context(), caller, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

// UpdateBookingHandler handles PATCH /bookings/:id with a JSON transition payload.
func (h *BookingHandler) UpdateBookingHandler(c *gin.Context) {
	var payload models.TransitionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, booking.CodeValidation, "invalid input: "+err.Error())
		return
	}
	h.update(c, payload)
}

// NoteFormHandler handles POST /bookings/:id/note-form. Fields are read from
// the query string first, then from a urlencoded body.
func (h *BookingHandler) NoteFormHandler(c *gin.Context) {
	var payload models.TransitionPayload
	if status := formValue(c, "status"); status != "" {
		payload.Status = &status
	}
	if note := formValue(c, "providerNote"); note != "" {
		payload.ProviderNote = &note
	}
	if raw := formValue(c, "amount"); raw != "" {
		amount, err := lifecycle.ParseAmount(raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, booking.CodeValidation, err.Error())
			return
		}
		payload.Amount = &amount
	}
	h.update(c, payload)
}

// AcceptBookingHandler handles POST /bookings/:id/accept and answers with the
// updated booking and the gateway's public key.
func (h *BookingHandler) AcceptBookingHandler(c *gin.Context) {
	var req models.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, booking.CodeValidation, "invalid input: "+err.Error())
		return
	}
	if req.Amount == nil {
		utils.JSONError(c, http.StatusBadRequest, booking.CodeValidation, "amount is required")
		return
	}
	b, ok := h.apply(c, models.TransitionPayload{Amount: req.Amount, ProviderNote: req.ProviderNote})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.AcceptResponse{Booking: b, KeyID: h.Service.PaymentKeyID()})
}

// GetPaymentOrderHandler handles GET /bookings/:id/order. It answers 204 when
// the booking cannot be paid for.
func (h *BookingHandler) GetPaymentOrderHandler(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	order, err := h.Service.GetPaymentOrder(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, order)
}

// VerifyPaymentHandler handles POST /bookings/:id/verify.
func (h *BookingHandler) VerifyPaymentHandler(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, booking.CodeValidation, "invalid input: "+err.Error())
		return
	}

	b, err := h.Service.VerifyPayment(c.Request.Context(), caller, c.Param("id"), req.Result())
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Payment verified", zap.String("bookingId", b.ID))
	c.JSON(http.StatusOK, models.BookingEnvelope{Booking: b})
}

// HealthHandler reports the last backend probe.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": http.StatusText(code), "backends": status})
}

func (h *BookingHandler) update(c *gin.Context, payload models.TransitionPayload) {
	b, ok := h.apply(c, payload)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) apply(c *gin.Context, payload models.TransitionPayload) (*models.Booking, bool) {
	caller, ok := principal(c)
	if !ok {
		return nil, false
	}
	b, err := h.Service.UpdateBooking(c.Request.Context(), caller, c.Param("id"), payload)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	getLogger(c).Info("Booking updated", zap.String("bookingId", b.ID), zap.String("status", b.Status))
	return b, true
}

func principal(c *gin.Context) (utils.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "Insufficient authorization")
	}
	return p, ok
}

func respondError(c *gin.Context, err error) {
	status := booking.HTTPStatus(err)
	message := booking.ErrorMessage(err)
	if status == http.StatusInternalServerError {
		getLogger(c).Error("Booking request failed", zap.Error(err))
		message = "internal error"
	}
	utils.JSONError(c, status, booking.ErrorCode(err), message)
}

func formValue(c *gin.Context, key string) string {
	if v, ok := c.GetQuery(key); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.PostForm(key))
}
