// Package paper implements an in-memory broker that fills every valid order
// immediately at its price.
package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/ashare/internal/broker"
	"go.uber.org/zap"
)

// Name is the registry name of the paper broker.
const Name = "paper"

// Config holds paper account settings.
type Config struct {
	InitialCash    float64
	CommissionRate float64
	LotSize        int64
}

// DefaultConfig mirrors the backtest account defaults.
func DefaultConfig() Config {
	return Config{
		InitialCash:    1_000_000,
		CommissionRate: 0.0003,
		LotSize:        100,
	}
}

type holding struct {
	quantity    int64
	averageCost float64
	lastPrice   float64
	updatedAt   time.Time
}

// Broker is a simulated account. It is safe for concurrent use.
type Broker struct {
	mu        sync.RWMutex
	cfg       Config
	connected bool
	cash      float64
	holdings  map[string]*holding
	orders    []broker.Order
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a paper Broker.
type Option func(*Broker)

// WithClock overrides the time source used to stamp orders.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a paper broker funded with cfg.InitialCash.
func New(cfg Config, opts ...Option) *Broker {
	if cfg.LotSize <= 0 {
		cfg.LotSize = DefaultConfig().LotSize
	}
	b := &Broker{
		cfg:      cfg,
		cash:     cfg.InitialCash,
		holdings: make(map[string]*holding),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the broker name.
func (b *Broker) Name() string {
	return Name
}

// Connect establishes connection (no-op for paper).
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

// Disconnect closes connection.
func (b *Broker) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

// IsConnected returns connection status.
func (b *Broker) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// PlaceOrder fills req at its price. Buys must be whole lots and covered by
// cash including commission; sells may not exceed the holding. Orders that
// fail these checks are recorded as rejected and returned with an error.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Price <= 0 {
		return nil, broker.ErrInvalidPrice
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, broker.ErrNotConnected
	}

	now := b.now()
	order := broker.Order{
		OrderID:       uuid.NewString(),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        broker.OrderStatusPending,
		CreatedAt:     now,
	}

	var err error
	switch req.Side {
	case broker.OrderSideBuy:
		err = b.buy(&order)
	case broker.OrderSideSell:
		err = b.sell(&order)
	}
	if err != nil {
		order.Status = broker.OrderStatusRejected
		order.RejectionReason = err.Error()
		b.orders = append(b.orders, order)
		return &order, err
	}

	order.Status = broker.OrderStatusFilled
	order.FilledQuantity = order.Quantity
	order.AverageFillPrice = order.Price
	order.FilledAt = &now
	b.orders = append(b.orders, order)

	b.logger.Debug("paper fill",
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Int64("quantity", order.Quantity),
		zap.Float64("price", order.Price),
		zap.Float64("cash", b.cash),
	)
	return &order, nil
}

func (b *Broker) buy(order *broker.Order) error {
	if order.Quantity%b.cfg.LotSize != 0 {
		return fmt.Errorf("%w: %d is not a multiple of lot %d", broker.ErrInvalidQuantity, order.Quantity, b.cfg.LotSize)
	}
	gross := float64(order.Quantity) * order.Price
	commission := gross * b.cfg.CommissionRate
	if gross+commission > b.cash {
		return fmt.Errorf("%w: need %.2f, have %.2f", broker.ErrInsufficientFunds, gross+commission, b.cash)
	}

	h, ok := b.holdings[order.Symbol]
	if !ok {
		h = &holding{}
		b.holdings[order.Symbol] = h
	}
	total := float64(h.quantity)*h.averageCost + gross
	h.quantity += order.Quantity
	h.averageCost = total / float64(h.quantity)
	h.lastPrice = order.Price
	h.updatedAt = order.CreatedAt

	b.cash -= gross + commission
	order.Commission = commission
	return nil
}

func (b *Broker) sell(order *broker.Order) error {
	h, ok := b.holdings[order.Symbol]
	if !ok || h.quantity < order.Quantity {
		var held int64
		if ok {
			held = h.quantity
		}
		return fmt.Errorf("%w: sell %d, hold %d", broker.ErrInsufficientPosition, order.Quantity, held)
	}

	gross := float64(order.Quantity) * order.Price
	commission := gross * b.cfg.CommissionRate
	h.quantity -= order.Quantity
	h.lastPrice = order.Price
	h.updatedAt = order.CreatedAt
	if h.quantity == 0 {
		delete(b.holdings, order.Symbol)
	}

	b.cash += gross - commission
	order.Commission = commission
	return nil
}

// CancelAll cancels open orders. Paper orders fill or reject on placement,
// so there is never anything to cancel.
func (b *Broker) CancelAll(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return 0, broker.ErrNotConnected
	}
	cancelled := 0
	for i := range b.orders {
		if b.orders[i].IsOpen() {
			b.orders[i].Status = broker.OrderStatusCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

// GetPositions returns holdings sorted by symbol, marked at the last fill price.
func (b *Broker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.connected {
		return nil, broker.ErrNotConnected
	}
	return b.positionsLocked(), nil
}

func (b *Broker) positionsLocked() []broker.Position {
	out := make([]broker.Position, 0, len(b.holdings))
	for symbol, h := range b.holdings {
		value := float64(h.quantity) * h.lastPrice
		out = append(out, broker.Position{
			Symbol:       symbol,
			Quantity:     h.quantity,
			AverageCost:  h.averageCost,
			CurrentPrice: h.lastPrice,
			MarketValue:  value,
			UnrealizedPL: value - float64(h.quantity)*h.averageCost,
			UpdatedAt:    h.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// GetBalance returns cash and the marked value of all holdings.
func (b *Broker) GetBalance(ctx context.Context) (*broker.Balance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.connected {
		return nil, broker.ErrNotConnected
	}
	var value float64
	for _, p := range b.positionsLocked() {
		value += p.MarketValue
	}
	return &broker.Balance{
		Currency:    "CNY",
		Cash:        b.cash,
		MarketValue: value,
		TotalValue:  b.cash + value,
		UpdatedAt:   b.now(),
	}, nil
}

// Orders returns a copy of every order placed, in placement order.
func (b *Broker) Orders() []broker.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]broker.Order, len(b.orders))
	copy(out, b.orders)
	return out
}
