package tradingprovider

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/aerucodes/emacross/internal/trading"
	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/pkg/errors"
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

// BinanceOrderSink forwards order intents to Binance as spot market orders.
// It is stateless; the backtest ledger is never reconciled against the
// exchange's answer.
type BinanceOrderSink struct {
	client BinanceClient
}

// NewBinanceOrderSink creates a Binance-backed order sink. If useTestnet is
// true, connects to the Binance Testnet. config.BaseURL takes precedence over
// useTestnet when set.
func NewBinanceOrderSink(config BinanceSinkConfig, useTestnet bool) (*BinanceOrderSink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceOrderSink{
		client: &realBinanceClient{client: client},
	}, nil
}

// newBinanceOrderSinkWithClient creates a sink with a custom client.
// This is used for testing with mock clients.
func newBinanceOrderSinkWithClient(client BinanceClient) *BinanceOrderSink {
	return &BinanceOrderSink{client: client}
}

// SubmitOrder implements trading.OrderSink.
func (b *BinanceOrderSink) SubmitOrder(ctx context.Context, intent types.OrderIntent) (types.Fill, error) {
	var side binance.SideType

	switch intent.Side {
	case types.PurchaseTypeBuy:
		side = binance.SideTypeBuy
	case types.PurchaseTypeSell:
		side = binance.SideTypeSell
	default:
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", intent.Side)
	}

	if intent.Quantity <= 0 {
		return types.Fill{}, errors.New(errors.ErrCodeInvalidOrder, "order quantity must be greater than zero")
	}

	response, err := b.client.NewCreateOrderService().
		Symbol(intent.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatInt(intent.Quantity, 10)).
		Do(ctx)
	if err != nil {
		return types.Fill{}, errors.Wrap(errors.ErrCodeLiveSinkUnavailable, "failed to place order on Binance", err)
	}

	fill := types.Fill{
		OrderID:  intent.ID,
		Accepted: true,
	}

	if response.Status == binance.OrderStatusTypeRejected {
		fill.Accepted = false
		fill.ErrorReason = "rejected by exchange"

		return fill, nil
	}

	// Market fills report an average price over the executed lots.
	if len(response.Fills) > 0 {
		total := 0.0
		qty := 0.0

		for _, f := range response.Fills {
			price, _ := strconv.ParseFloat(f.Price, 64)
			quantity, _ := strconv.ParseFloat(f.Quantity, 64)
			total += price * quantity
			qty += quantity
		}

		if qty > 0 {
			fill.FillPrice = total / qty
		}
	}

	return fill, nil
}

// Name implements trading.OrderSink.
func (b *BinanceOrderSink) Name() string {
	return "binance"
}

// CheckConnection verifies connectivity and authentication via the account
// endpoint.
func (b *BinanceOrderSink) CheckConnection(ctx context.Context) error {
	_, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLiveSinkUnavailable, "failed to connect to Binance API", err)
	}

	return nil
}

// Ensure BinanceOrderSink implements trading.OrderSink.
var _ trading.OrderSink = (*BinanceOrderSink)(nil)
