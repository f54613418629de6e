package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/quantlab-trading/backtester/pkg/provider CandleProvider
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/quantlab-trading/backtester/internal/strategy TradingStrategy
