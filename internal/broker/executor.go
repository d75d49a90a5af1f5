package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/ashare/internal/core"
	"go.uber.org/zap"
)

// Executor turns sized trading signals into orders on a broker.
type Executor struct {
	broker Broker
	logger *zap.Logger
}

// NewExecutor creates an Executor placing orders on b.
func NewExecutor(b Broker, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{broker: b, logger: logger}
}

// Broker returns the broker orders are placed on.
func (e *Executor) Broker() Broker {
	return e.broker
}

// Execute places a market order for sig at the signal price. HOLD signals
// return a nil order and no error. Orders are attempted once; a failed or
// rejected order is reported as core.ErrOrderFailed.
func (e *Executor) Execute(ctx context.Context, sig core.Signal) (*Order, error) {
	var side OrderSide
	switch sig.Action {
	case core.ActionBuy:
		side = OrderSideBuy
	case core.ActionSell:
		side = OrderSideSell
	default:
		return nil, nil
	}

	if sig.Quantity <= 0 {
		return nil, core.WrapError(core.ErrOrderFailed, fmt.Errorf("%s %s: %w", sig.Action, sig.Symbol, ErrInvalidQuantity))
	}
	if sig.Price <= 0 {
		return nil, core.WrapError(core.ErrOrderFailed, fmt.Errorf("%s %s: %w", sig.Action, sig.Symbol, ErrInvalidPrice))
	}
	if !e.broker.IsConnected() {
		return nil, core.WrapError(core.ErrBrokerDisconnected, ErrNotConnected)
	}

	req := OrderRequest{
		Symbol:   sig.Symbol,
		Side:     side,
		Type:     OrderTypeMarket,
		Quantity: sig.Quantity,
		Price:    sig.Price,
	}
	if err := req.Validate(); err != nil {
		return nil, core.WrapError(core.ErrOrderFailed, err)
	}

	order, err := e.broker.PlaceOrder(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			return nil, core.WrapError(core.ErrBrokerDisconnected, err)
		}
		e.logger.Warn("order failed",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.Int64("quantity", req.Quantity),
			zap.Error(err),
		)
		return nil, core.WrapError(core.ErrOrderFailed, err)
	}
	if order.Status == OrderStatusRejected {
		return order, core.WrapError(core.ErrOrderFailed, fmt.Errorf("order %s rejected: %s", order.OrderID, order.RejectionReason))
	}

	e.logger.Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Int64("quantity", order.Quantity),
		zap.Float64("price", req.Price),
		zap.String("status", string(order.Status)),
	)
	return order, nil
}
