// Package strategy converts a predicted up-probability and the latest
// volatility into a five-level trading action.
//
// Bands are evaluated in a fixed order and do not overlap:
//
//	prob >= 0.80, vol <= 0.04  BUY        limit, stop
//	prob >= 0.80, vol >  0.04  MILD_BUY   (downgraded)
//	prob >= 0.65               MILD_BUY
//	prob <= 0.10               SELL       limit
//	prob <= 0.25               MILD_SELL
//	otherwise                  HOLD
package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"stock-signal/internal/feature"
	"stock-signal/internal/model"
)

var (
	ErrNoRows        = errors.New("strategy: no feature rows")
	ErrIncompleteRow = errors.New("strategy: latest row lacks close or volatility")
)

// Rules holds the band thresholds and price-level factors.
type Rules struct {
	StrongBuy     float64 // prob_up at or above: BUY band
	Buy           float64 // prob_up at or above: MILD_BUY band
	StrongSell    float64 // prob_up at or below: SELL band
	Sell          float64 // prob_up at or below: MILD_SELL band
	MaxVolatility float64 // BUY needs volatility at or below this

	BuyLimit  decimal.Decimal // limit = floor(close * BuyLimit)
	StopLoss  decimal.Decimal // stop  = floor(close * StopLoss)
	SellLimit decimal.Decimal // limit = floor(close * SellLimit)
}

// DefaultRules returns the production band table.
func DefaultRules() Rules {
	return Rules{
		StrongBuy:     0.80,
		Buy:           0.65,
		StrongSell:    0.10,
		Sell:          0.25,
		MaxVolatility: 0.04,

		BuyLimit:  decimal.RequireFromString("0.995"),
		StopLoss:  decimal.RequireFromString("0.98"),
		SellLimit: decimal.RequireFromString("1.005"),
	}
}

// Decision is the outcome of one band lookup.
type Decision struct {
	Action     model.Action
	Reason     string
	LimitPrice *int64
	StopLoss   *int64
}

// Decide maps probability, volatility and close to an action. Pure.
func (r Rules) Decide(probUp, volatility, close float64) Decision {
	switch {
	case probUp >= r.StrongBuy && volatility <= r.MaxVolatility:
		return Decision{
			Action:     model.ActionBuy,
			Reason:     fmt.Sprintf("High prob (%.2f) & Low Vol (%.1f%%)", probUp, volatility*100),
			LimitPrice: priceLevel(close, r.BuyLimit),
			StopLoss:   priceLevel(close, r.StopLoss),
		}
	case probUp >= r.StrongBuy:
		return Decision{
			Action: model.ActionMildBuy,
			Reason: fmt.Sprintf("High prob (%.2f) but High Vol (%.1f%%)", probUp, volatility*100),
		}
	case probUp >= r.Buy:
		return Decision{
			Action: model.ActionMildBuy,
			Reason: fmt.Sprintf("Moderate prob (%.2f)", probUp),
		}
	case probUp <= r.StrongSell:
		return Decision{
			Action:     model.ActionSell,
			Reason:     fmt.Sprintf("Very low prob (%.2f)", probUp),
			LimitPrice: priceLevel(close, r.SellLimit),
		}
	case probUp <= r.Sell:
		return Decision{
			Action: model.ActionMildSell,
			Reason: fmt.Sprintf("Low prob (%.2f)", probUp),
		}
	default:
		return Decision{
			Action: model.ActionHold,
			Reason: fmt.Sprintf("Neutral probability (%.2f)", probUp),
		}
	}
}

// Generate builds the signal for ticker from the latest row. rows must be
// ascending and the latest row must carry volatility.
func (r Rules) Generate(rows []model.FeatureRow, probUp float64, ticker model.Ticker) (model.Signal, error) {
	latest, ok := feature.Latest(rows)
	if !ok {
		return model.Signal{}, ErrNoRows
	}
	vol, ok := latest.Volatility.Get()
	if !ok {
		return model.Signal{}, ErrIncompleteRow
	}

	d := r.Decide(probUp, vol, latest.Close)
	return model.Signal{
		Ticker:     ticker.Code,
		Name:       ticker.Name,
		Date:       latest.DateKey(),
		Close:      latest.Close,
		ProbUp:     probUp,
		Action:     d.Action,
		Reason:     d.Reason,
		LimitPrice: d.LimitPrice,
		StopLoss:   d.StopLoss,
	}, nil
}

// Generate applies DefaultRules.
func Generate(rows []model.FeatureRow, probUp float64, ticker model.Ticker) (model.Signal, error) {
	return DefaultRules().Generate(rows, probUp, ticker)
}

// priceLevel is floor(close * factor) computed in decimal so that
// 1000 * 0.995 is exactly 995.
func priceLevel(close float64, factor decimal.Decimal) *int64 {
	v := decimal.NewFromFloat(close).Mul(factor).Floor().IntPart()
	return &v
}
