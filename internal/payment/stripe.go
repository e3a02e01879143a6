// Package payment creates Stripe Checkout sessions for API key purchases.
// Payment state lives entirely with Stripe; this service only needs a URL
// to send the buyer to and a redirect back on success.
package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// AccessPriceCents is the fixed one-time price for API access.
const AccessPriceCents = 500

// Checkout creates payment sessions against the configured Stripe account.
type Checkout struct {
	baseURL string
}

func NewCheckout(secretKey, baseURL string) *Checkout {
	stripe.Key = secretKey
	return &Checkout{baseURL: baseURL}
}

// CreateSession opens a one-item card checkout and returns the hosted URL.
// Stripe redirects to /success on completion, which is where the key is
// issued.
func (c *Checkout) CreateSession(ctx context.Context) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Invoice API Access"),
				},
				UnitAmount: stripe.Int64(AccessPriceCents),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(c.baseURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(c.baseURL + "/cancel"),
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}
