package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"vitacal/src/common"
	"vitacal/src/db"
	"vitacal/src/lib"
	"vitacal/src/models"
	"vitacal/src/types"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeWebhookRoute ingests the payment settlement signal. Deferred
// intents promote (or conflict-resolve) their reservation; completed
// instant checkouts create the meeting directly. Duplicate deliveries
// are no-ops.
func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		now := time.Now().UTC()
		switch event.Type {
		case "payment_intent.succeeded":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				break
			}
			signal := types.SettlementSignal{
				PaymentReference: pi.ID,
				Amount:           pi.Amount,
				Currency:         string(pi.Currency),
				SettledAt:        now,
				Method:           pi.Metadata["method"],
			}
			if err := common.ApplySettlement(ctx, &signal, now); err != nil {
				log.Printf("[Stripe] Error applying settlement %s: %s\n", pi.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "payment_intent.payment_failed":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				break
			}
			// A failed deferred payment leaves the hold alone; the TTL
			// and sweeper decide when the slot frees up.
			log.Printf("[Stripe] Payment failed for %s\n", pi.ID)
		case "checkout.session.completed", "checkout.session.async_payment_succeeded":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
				break
			}
			if err := confirmCheckoutBooking(&session, now); err != nil {
				log.Printf("[Stripe] Error confirming checkout %s: %s\n", session.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "checkout.session.async_payment_failed", "checkout.session.expired":
			log.Printf("[Stripe] Checkout did not complete: %s\n", event.Type)
		default:
			log.Printf("[Stripe] Ignoring event type %s\n", event.Type)
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}

// confirmCheckoutBooking turns a paid checkout session into a meeting.
// The session metadata carries the booking details because no reservation
// row exists for instant payments.
func confirmCheckoutBooking(session *stripe.CheckoutSession, now time.Time) error {
	paymentRef := session.ID
	if session.PaymentIntent != nil {
		paymentRef = session.PaymentIntent.ID
	}
	conn := db.GetDb()

	// Redelivered event: the claim row already exists.
	var existing int64
	err := conn.
		Model(&models.SlotReservation{}).
		Where(&models.SlotReservation{PaymentReference: &paymentRef}).
		Count(&existing).
		Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	expertId, err := strconv.Atoi(session.Metadata["expert_id"])
	if err != nil {
		return err
	}
	eventId, err := strconv.Atoi(session.Metadata["event_id"])
	if err != nil {
		return err
	}
	start, err := time.Parse(time.RFC3339, session.Metadata["start"])
	if err != nil {
		return err
	}
	var expert models.Expert
	if err := conn.Where(&models.Expert{ID: uint(expertId)}).First(&expert).Error; err != nil {
		return err
	}
	var svc models.Event
	if err := conn.Where(&models.Event{ID: uint(eventId)}).First(&svc).Error; err != nil {
		return err
	}
	input := common.ReserveInput{
		Expert:        &expert,
		Event:         &svc,
		GuestName:     session.Metadata["guest_name"],
		GuestEmail:    session.Metadata["guest_email"],
		GuestTimezone: session.Metadata["guest_timezone"],
		Start:         start.UTC(),
		PaymentMethod: session.Metadata["method"],
	}
	meeting, err := common.ConfirmInstant(&input, paymentRef, now)
	if err != nil {
		if errors.Is(err, common.ErrSlotTaken) {
			// Payment settled but someone else claimed the slot in the
			// meantime. Refund in full; nothing was retained.
			log.Printf("[Stripe] Slot lost after checkout %s, issuing full refund\n", session.ID)
			if _, err := lib.CreatePartialRefund(context.Background(), paymentRef, svc.Price, "checkout_slot_lost"); err != nil {
				return err
			}
			return nil
		}
		return err
	}
	log.Printf("[Stripe] Confirmed meeting %s from checkout %s\n", meeting.Reference, session.ID)
	return nil
}
