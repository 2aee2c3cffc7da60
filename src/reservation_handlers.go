package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"vitacal/src/common"
	"vitacal/src/config"
	"vitacal/src/db"
	"vitacal/src/lib"
	"vitacal/src/models"
	"vitacal/src/types"
	"vitacal/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// bookingRoutes is the guest-facing checkout entry. Instant-settlement
// methods go straight to a hosted checkout and only touch the database
// when the completed-session webhook lands; deferred methods place a hold
// first and attach the payment intent to it.
func bookingRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error in validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := time.Parse(time.RFC3339, body.Start)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start = start.UTC()
			class, known := config.SettlementClassFor(body.PaymentMethod)
			if !known {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported payment method %q", body.PaymentMethod)})
				return
			}

			conn := db.GetDb()
			var expert models.Expert
			if err := conn.Where(&models.Expert{ID: body.ExpertID}).First(&expert).Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			var event models.Event
			err = conn.
				Where(&models.Event{ID: body.EventID, ExpertID: body.ExpertID, Active: true}).
				First(&event).
				Error
			if err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}

			input := common.ReserveInput{
				Expert:        &expert,
				Event:         &event,
				GuestName:     body.GuestName,
				GuestEmail:    body.GuestEmail,
				GuestTimezone: body.GuestTimezone,
				Start:         start,
				PaymentMethod: body.PaymentMethod,
			}
			now := time.Now().UTC()

			if class == types.SETTLEMENT_INSTANT {
				ok, err := instantSlotCheck(ctx, &input, now)
				if err != nil {
					log.Printf("[Booking] Slot check failed: %s\n", err.Error())
					ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking is temporarily unavailable"})
					return
				}
				if !ok {
					ctx.JSON(http.StatusConflict, gin.H{"error": "slot is no longer available"})
					return
				}
				session, err := lib.CreateInstantCheckout(ctx, event.Name, event.Price, event.Currency, bookingMetadata(&input))
				if err != nil {
					log.Printf("[Booking] Error creating checkout session: %s\n", err.Error())
					ctx.JSON(http.StatusBadGateway, gin.H{"error": "could not start checkout"})
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"checkout_url": session.URL})
				return
			}

			reservation, err := common.Reserve(ctx, &input, now)
			if err != nil {
				switch {
				case errors.Is(err, common.ErrSlotInvalid):
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				case errors.Is(err, common.ErrSlotTaken):
					ctx.JSON(http.StatusConflict, gin.H{"error": "slot is already taken"})
				case errors.Is(err, common.ErrProviderTimeout):
					ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking is temporarily unavailable"})
				default:
					log.Printf("[Booking] Error creating reservation: %s\n", err.Error())
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not create reservation"})
				}
				return
			}

			metadata := bookingMetadata(&input)
			metadata["reservation_id"] = fmt.Sprint(reservation.ID)
			intent, err := lib.CreateDeferredPaymentIntent(ctx, body.PaymentMethod, event.Price, event.Currency, metadata)
			if err != nil {
				log.Printf("[Booking] Error creating payment intent for reservation %d: %s\n", reservation.ID, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "could not start payment"})
				return
			}
			if err := common.AttachPaymentReference(reservation.ID, intent.ID); err != nil {
				log.Printf("[Booking] Error attaching payment reference to reservation %d: %s\n", reservation.ID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not create reservation"})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{
				"reservation":   reservation,
				"client_secret": intent.ClientSecret,
				"expires_at":    reservation.ExpiresAt,
			})
		})
	return g
}

func bookingMetadata(input *common.ReserveInput) map[string]string {
	return map[string]string{
		"expert_id":      fmt.Sprint(input.Expert.ID),
		"event_id":       fmt.Sprint(input.Event.ID),
		"start":          input.Start.UTC().Format(time.RFC3339),
		"guest_name":     input.GuestName,
		"guest_email":    input.GuestEmail,
		"guest_timezone": input.GuestTimezone,
		"method":         input.PaymentMethod,
	}
}

// instantSlotCheck mirrors the reserve-time validation for instant
// bookings, which never hold a row before payment.
func instantSlotCheck(ctx *gin.Context, input *common.ReserveInput, now time.Time) (bool, error) {
	busy, err := common.BusyForReserve(ctx, input.Expert.CalendarID, input.Start, input.Start.Add(time.Duration(input.Event.DurationMinutes)*time.Minute))
	if err != nil {
		return false, err
	}
	claims, err := claimedIntervals(input.Expert.ID, input.Start, input.Start.Add(time.Duration(input.Event.DurationMinutes)*time.Minute))
	if err != nil {
		return false, err
	}
	busy = append(busy, claims...)
	schedule, err := utils.GetSchedule(input.Expert.ID)
	if err != nil {
		return false, err
	}
	return common.SlotIsValid(schedule, input.Event, busy, input.Start, now)
}

// reservationHandlers lets the expert inspect holds and their outcomes.
func reservationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/reservations", func(ctx *gin.Context) {
			expertId := ctx.GetUint("id")
			var reservations []models.SlotReservation
			conn := db.GetDb()
			err := conn.
				Where(&models.SlotReservation{ExpertID: expertId}).
				Preload("Event").
				Preload("RefundRecord").
				Order("start_at desc").
				Find(&reservations).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservations})
		}).
		GET("/reservations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			expertId := ctx.GetUint("id")
			var reservation models.SlotReservation
			conn := db.GetDb()
			err := conn.
				Where(&models.SlotReservation{ID: params.ID, ExpertID: expertId}).
				Preload("Event").
				Preload("RefundRecord").
				First(&reservation).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservation})
		})
	return g
}
