package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Booking endpoints
	CreateBookingHandler   gin.HandlerFunc
	ListBookingsHandler    gin.HandlerFunc
	UpdateBookingHandler   gin.HandlerFunc
	NoteFormHandler        gin.HandlerFunc
	AcceptBookingHandler   gin.HandlerFunc
	GetPaymentOrderHandler gin.HandlerFunc
	VerifyPaymentHandler   gin.HandlerFunc

	// Admin endpoints
	AdminListBookingsHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}

// NewHandlerBundle wires bh's methods into a bundle.
func NewHandlerBundle(bh *BookingHandler) *HandlerBundle {
	return &HandlerBundle{
		CreateBookingHandler:     bh.CreateBookingHandler,
		ListBookingsHandler:      bh.ListBookingsHandler,
		UpdateBookingHandler:     bh.UpdateBookingHandler,
		NoteFormHandler:          bh.NoteFormHandler,
		AcceptBookingHandler:     bh.AcceptBookingHandler,
		GetPaymentOrderHandler:   bh.GetPaymentOrderHandler,
		VerifyPaymentHandler:     bh.VerifyPaymentHandler,
		AdminListBookingsHandler: bh.AdminListBookingsHandler,
		HealthHandler:            HealthHandler,
	}
}
