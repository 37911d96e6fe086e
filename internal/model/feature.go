package model

// NumFeatures is the width of the model input vector.
const NumFeatures = 9

// FeatureNames lists the model input columns in Vector order.
var FeatureNames = [NumFeatures]string{
	"return_1d", "return_5d", "return_20d",
	"div_ma_5", "div_ma_20", "div_ma_60",
	"rsi", "volatility", "vol_change",
}

// FeatureRow is a Bar extended with derived technical indicators.
// Fields whose trailing window is longer than the available history are
// undefined rather than zero.
type FeatureRow struct {
	Bar

	Return1D  NullFloat `json:"return_1d"`
	Return5D  NullFloat `json:"return_5d"`
	Return20D NullFloat `json:"return_20d"`

	MA5  NullFloat `json:"ma_5"`
	MA20 NullFloat `json:"ma_20"`
	MA60 NullFloat `json:"ma_60"`

	DivMA5  NullFloat `json:"div_ma_5"`
	DivMA20 NullFloat `json:"div_ma_20"`
	DivMA60 NullFloat `json:"div_ma_60"`

	RSI        NullFloat `json:"rsi"`
	Volatility NullFloat `json:"volatility"`
	VolChange  NullFloat `json:"vol_change"`
}

func (r *FeatureRow) derived() [12]NullFloat {
	return [12]NullFloat{
		r.Return1D, r.Return5D, r.Return20D,
		r.MA5, r.MA20, r.MA60,
		r.DivMA5, r.DivMA20, r.DivMA60,
		r.RSI, r.Volatility, r.VolChange,
	}
}

// Complete reports whether every derived field is defined.
func (r *FeatureRow) Complete() bool {
	for _, f := range r.derived() {
		if !f.Valid {
			return false
		}
	}
	return true
}

// Vector returns the model input columns in FeatureNames order.
// Undefined fields read as zero; callers train and predict on complete rows only.
func (r *FeatureRow) Vector() [NumFeatures]float64 {
	return [NumFeatures]float64{
		r.Return1D.Float64, r.Return5D.Float64, r.Return20D.Float64,
		r.DivMA5.Float64, r.DivMA20.Float64, r.DivMA60.Float64,
		r.RSI.Float64, r.Volatility.Float64, r.VolChange.Float64,
	}
}
