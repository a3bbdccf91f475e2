package mocks

//go:generate mockgen -destination=./mock_order_sink.go -package=mocks github.com/aerucodes/emacross/internal/trading OrderSink
