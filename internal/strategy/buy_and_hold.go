package strategy

import (
	"github.com/moznion/go-optional"

	"github.com/quantlab-trading/backtester/internal/types"
)

// BuyAndHold buys on the first candle it sees and never sells. It is the
// benchmark every other strategy is compared against.
type BuyAndHold struct{}

func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{}
}

func (s *BuyAndHold) Name() string {
	return string(TypeBuyAndHold)
}

func (s *BuyAndHold) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	if len(history) != 0 {
		return noSignal()
	}

	return buy(candle.Symbol, "first candle")
}
