// Package payment wraps the card-payment provider. The booking core only
// needs to open an order for an appointment fee and later ask whether it was
// paid.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	razorpay "github.com/razorpay/razorpay-go"
)

var ErrDisabled = errors.New("online payment is not configured")

type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderAttempted OrderStatus = "attempted"
	OrderPaid      OrderStatus = "paid"
)

type Order struct {
	ID       string      `json:"id"`
	Amount   int64       `json:"amount"` // minor units (paise, cents)
	Currency string      `json:"currency"`
	Receipt  string      `json:"receipt"`
	Status   OrderStatus `json:"status"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, receipt string, amount float64, currency string) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
}

// ToMinorUnits converts a fee in major units to the integer amount the
// provider expects.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	orders orderAPI
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{orders: client.Order}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, receipt string, amount float64, currency string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := g.orders.Create(map[string]interface{}{
		"amount":   ToMinorUnits(amount),
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating razorpay order: %w", err)
	}
	return decodeOrder(body)
}

func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := g.orders.Fetch(orderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching razorpay order %s: %w", orderID, err)
	}
	return decodeOrder(body)
}

func decodeOrder(body map[string]interface{}) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay response has no order id")
	}
	o := &Order{ID: id}
	o.Currency, _ = body["currency"].(string)
	o.Receipt, _ = body["receipt"].(string)
	if s, ok := body["status"].(string); ok {
		o.Status = OrderStatus(s)
	}
	// JSON numbers decode as float64.
	if a, ok := body["amount"].(float64); ok {
		o.Amount = int64(a)
	}
	return o, nil
}

// Disabled is used when no provider credentials are configured.
type Disabled struct{}

func (Disabled) CreateOrder(context.Context, string, float64, string) (*Order, error) {
	return nil, ErrDisabled
}

func (Disabled) FetchOrder(context.Context, string) (*Order, error) {
	return nil, ErrDisabled
}
