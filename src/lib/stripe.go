package lib

import (
	"context"
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// CreatePartialRefund refunds part of a settled payment, leaving the
// retained share on the platform balance.
func CreatePartialRefund(ctx context.Context, paymentIntentId string, amount int64, reason string) (*stripe.Refund, error) {
	sc := GetStripeClient()
	params := stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentIntentId),
		Amount:        stripe.Int64(amount),
		Metadata: map[string]string{
			"reason": reason,
		},
	}
	return sc.V1Refunds.Create(ctx, &params)
}

// CreateDeferredPaymentIntent opens a delayed-settlement payment (bank
// voucher style) for a held reservation. The intent id becomes the
// reservation's payment reference.
func CreateDeferredPaymentIntent(ctx context.Context, method string, amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	sc := GetStripeClient()
	params := stripe.PaymentIntentCreateParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{method}),
		Metadata:           metadata,
	}
	return sc.V1PaymentIntents.Create(ctx, &params)
}

// CreateInstantCheckout opens a hosted checkout session for an
// instant-settlement booking. No reservation row exists for these; the
// meeting is created when the completed-session webhook arrives.
func CreateInstantCheckout(ctx context.Context, name string, amount int64, currency string, metadata map[string]string) (*stripe.CheckoutSession, error) {
	sc := GetStripeClient()
	successUrl := fmt.Sprintf("%s/checkout/callback/success", os.Getenv("APP_HOST"))
	cancelUrl := fmt.Sprintf("%s/checkout/callback/cancel", os.Getenv("APP_HOST"))
	params := stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successUrl),
		CancelURL:  stripe.String(cancelUrl),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
		Metadata: metadata,
	}
	return sc.V1CheckoutSessions.Create(ctx, &params)
}
