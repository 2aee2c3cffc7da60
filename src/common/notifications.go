package common

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"vitacal/src/lib"
	awslib "vitacal/src/lib/aws"
	"vitacal/src/models"
	"vitacal/src/types"

	sesTypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/tidwall/gjson"
)

const notificationsTopic = "ReservationNotifications"

// NotifyAsync hands a notification request to the external notifier over
// the Kafka topic. Fire-and-forget: a dispatch failure is logged and the
// state change that triggered it stands.
func NotifyAsync(recipient string, templateKind string, data types.JSONB) {
	if recipient == "" {
		return
	}
	payload := map[string]any{
		"recipient":     recipient,
		"template_kind": templateKind,
		"data":          data,
	}
	go func() {
		if err := lib.KafkaProduceMessage("reservations", lib.WithSuffix(notificationsTopic), payload); err != nil {
			log.Printf("[Notify] Could not queue %s for %s: %s\n", templateKind, recipient, err.Error())
		}
	}()
}

func onReservationConflicted(reservation *models.SlotReservation, refund *models.RefundRecord) {
	if refund == nil {
		return
	}
	NotifyAsync(reservation.GuestEmail, "reservation_conflicted", types.JSONB{
		"start_at": reservation.StartAt,
		"refund":   refund.RefundAmount,
		"retained": refund.RetainedAmount,
		"currency": refund.Currency,
	})
}

// NotificationsConsumer drains the notification topic and fans each
// request out to the delivery channels. Local environments send through
// SMTP; deployed ones through SES.
func NotificationsConsumer() {
	topic := lib.WithSuffix(notificationsTopic)
	lib.KafkaConsumer("notifications", topic, func(value []byte) {
		var req types.NotificationRequest
		if err := json.Unmarshal(value, &req); err != nil {
			log.Printf("[%s]: Received invalid body: %s\n", topic, err.Error())
			return
		}
		subject, body := renderTemplate(&req)
		if os.Getenv("API_ENV") == "local" {
			err := lib.SendMail(&lib.SendMailInput{
				From:     os.Getenv("MAIL_FROM"),
				FromName: os.Getenv("MAIL_FROM_NAME"),
				To:       []string{req.Recipient},
				Subject:  subject,
				Body:     body,
			})
			if err != nil {
				log.Printf("[%s]: SMTP delivery failed for %s: %s\n", topic, req.Recipient, err.Error())
			}
			return
		}
		from := os.Getenv("MAIL_FROM")
		awslib.SESSendMessage(&from, &sesTypes.Destination{
			ToAddresses: []string{req.Recipient},
		}, &sesTypes.Message{
			Subject: &sesTypes.Content{Data: &subject},
			Body: &sesTypes.Body{
				Text: &sesTypes.Content{Data: &body},
			},
		})
	})
}

func renderTemplate(req *types.NotificationRequest) (subject string, body string) {
	raw, _ := json.Marshal(req.Data)
	switch req.TemplateKind {
	case "meeting_confirmed":
		return "Your booking is confirmed", string(raw)
	case "meeting_booked":
		return "You have a new booking", string(raw)
	case "reservation_expired":
		return "Your reservation has expired", string(raw)
	case "reservation_conflicted":
		return "Your booking could not be completed", string(raw)
	case "payment_reminder_first":
		return "Payment reminder: your reservation is waiting", string(raw)
	case "payment_reminder_final":
		return "Final reminder: your reservation expires tomorrow", string(raw)
	case "refund_applied":
		return "Your refund has been issued", string(raw)
	default:
		return req.TemplateKind, string(raw)
	}
}

// SettlementQueueConsumer ingests queued settlement events (bank-transfer
// confirmations relayed by the payments pipeline) and funnels them
// through the same transition logic as the webhook.
func SettlementQueueConsumer() {
	qname := lib.WithSuffix("SettledPayments")
	log.Printf("%s: Listening for messages...", qname)
	c := awslib.NewSQSConsumer(qname, func(body string) {
		if !gjson.Valid(body) {
			log.Printf("[%s]: Received invalid json body. Aborting", qname)
			return
		}
		signal := types.SettlementSignal{
			PaymentReference: gjson.Get(body, "payment_reference").String(),
			Amount:           gjson.Get(body, "amount").Int(),
			Currency:         gjson.Get(body, "currency").String(),
			Method:           gjson.Get(body, "method").String(),
		}
		if settledAt := gjson.Get(body, "settled_at").String(); settledAt != "" {
			if t, err := time.Parse(time.RFC3339, settledAt); err == nil {
				signal.SettledAt = t
			}
		}
		if signal.PaymentReference == "" {
			log.Printf("[%s]: Missing payment_reference. Aborting", qname)
			return
		}
		if err := ApplySettlement(context.Background(), &signal, time.Now().UTC()); err != nil {
			log.Printf("[%s]: Error applying settlement %s: %s\n", qname, signal.PaymentReference, err.Error())
		}
	})
	c.Listen()
}
