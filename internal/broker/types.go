// Package broker provides types and interfaces for broker integrations.
package broker

import (
	"context"
	"errors"
	"time"
)

// Broker-specific errors.
var (
	// ErrNotConnected indicates the broker is not connected.
	ErrNotConnected = errors.New("broker: not connected")
	// ErrInvalidSymbol indicates an invalid or empty symbol.
	ErrInvalidSymbol = errors.New("broker: invalid symbol")
	// ErrInvalidQuantity indicates an invalid quantity.
	ErrInvalidQuantity = errors.New("broker: invalid quantity")
	// ErrInvalidPrice indicates a missing or non-positive order price.
	ErrInvalidPrice = errors.New("broker: invalid price")
	// ErrInvalidSide indicates an order side other than BUY or SELL.
	ErrInvalidSide = errors.New("broker: invalid order side")
	// ErrInsufficientFunds indicates insufficient cash for the order.
	ErrInsufficientFunds = errors.New("broker: insufficient funds")
	// ErrInsufficientPosition indicates a sell larger than the holding.
	ErrInsufficientPosition = errors.New("broker: insufficient position")
)

// OrderSide represents the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of order execution.
type OrderType string

const (
	// OrderTypeMarket executes at the current price. Price carries the
	// reference price the caller observed.
	OrderTypeMarket OrderType = "MARKET"
	// OrderTypeLimit executes at the specified price or better.
	OrderTypeLimit OrderType = "LIMIT"
)

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

// OrderRequest represents a request to place a new order.
type OrderRequest struct {
	// Symbol is the exchange-qualified code, e.g. "600519.SH".
	Symbol string `json:"symbol"`
	// Side indicates buy or sell.
	Side OrderSide `json:"side"`
	// Type specifies the order execution type.
	Type OrderType `json:"type"`
	// Quantity is the number of shares to trade.
	Quantity int64 `json:"quantity"`
	// Price is the limit price, or the reference price for market orders.
	Price float64 `json:"price,omitempty"`
	// ClientOrderID is an optional client-specified identifier.
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// Validate checks if the order request has valid required fields.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return ErrInvalidSymbol
	}
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		return ErrInvalidSide
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.Type == OrderTypeLimit && r.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Order represents an order in the broker system.
type Order struct {
	OrderID          string      `json:"order_id"`
	ClientOrderID    string      `json:"client_order_id,omitempty"`
	Symbol           string      `json:"symbol"`
	Side             OrderSide   `json:"side"`
	Type             OrderType   `json:"type"`
	Quantity         int64       `json:"quantity"`
	Price            float64     `json:"price,omitempty"`
	Status           OrderStatus `json:"status"`
	FilledQuantity   int64       `json:"filled_quantity"`
	AverageFillPrice float64     `json:"average_fill_price"`
	Commission       float64     `json:"commission"`
	CreatedAt        time.Time   `json:"created_at"`
	// FilledAt is nil until the order is completely filled.
	FilledAt        *time.Time `json:"filled_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// IsFilled returns true if the order is completely filled.
func (o Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// IsOpen returns true if the order is still active.
func (o Order) IsOpen() bool {
	return o.Status == OrderStatusPending
}

// Position represents a holding in a security.
type Position struct {
	Symbol       string    `json:"symbol"`
	Quantity     int64     `json:"quantity"`
	AverageCost  float64   `json:"average_cost"`
	CurrentPrice float64   `json:"current_price"`
	MarketValue  float64   `json:"market_value"`
	UnrealizedPL float64   `json:"unrealized_pl"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Balance represents account balance information.
type Balance struct {
	// Currency is the currency code, "CNY" for A-share accounts.
	Currency    string  `json:"currency"`
	Cash        float64 `json:"cash"`
	MarketValue float64 `json:"market_value"`
	// TotalValue is cash plus the market value of all positions.
	TotalValue float64   `json:"total_value"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Broker defines the interface for broker integrations.
type Broker interface {
	// Name returns the broker identifier, e.g. "paper".
	Name() string

	// Connection management
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	// Order operations
	PlaceOrder(ctx context.Context, request OrderRequest) (*Order, error)
	// CancelAll cancels every open order and returns how many were cancelled.
	CancelAll(ctx context.Context) (int, error)

	// Position operations
	GetPositions(ctx context.Context) ([]Position, error)

	// Account operations
	GetBalance(ctx context.Context) (*Balance, error)
}
