package parquet

import (
	"fmt"
	"io"
	"time"

	goparquet "github.com/parquet-go/parquet-go"

	"stock-signal/internal/model"
)

// featureRow is the on-disk layout of an exported feature table. Undefined
// values are stored as nulls.
type featureRow struct {
	Date       string   `parquet:"date"`
	Open       float64  `parquet:"open"`
	High       float64  `parquet:"high"`
	Low        float64  `parquet:"low"`
	Close      float64  `parquet:"close"`
	Volume     float64  `parquet:"volume"`
	Return1D   *float64 `parquet:"return_1d,optional"`
	Return5D   *float64 `parquet:"return_5d,optional"`
	Return20D  *float64 `parquet:"return_20d,optional"`
	MA5        *float64 `parquet:"ma_5,optional"`
	MA20       *float64 `parquet:"ma_20,optional"`
	MA60       *float64 `parquet:"ma_60,optional"`
	DivMA5     *float64 `parquet:"div_ma_5,optional"`
	DivMA20    *float64 `parquet:"div_ma_20,optional"`
	DivMA60    *float64 `parquet:"div_ma_60,optional"`
	RSI        *float64 `parquet:"rsi,optional"`
	Volatility *float64 `parquet:"volatility,optional"`
	VolChange  *float64 `parquet:"vol_change,optional"`
}

// WriteFeatures writes rows to path atomically.
func WriteFeatures(path string, rows []model.FeatureRow) error {
	out := make([]featureRow, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = featureRow{
			Date:       r.DateKey(),
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Volume:     r.Volume,
			Return1D:   r.Return1D.Ptr(),
			Return5D:   r.Return5D.Ptr(),
			Return20D:  r.Return20D.Ptr(),
			MA5:        r.MA5.Ptr(),
			MA20:       r.MA20.Ptr(),
			MA60:       r.MA60.Ptr(),
			DivMA5:     r.DivMA5.Ptr(),
			DivMA20:    r.DivMA20.Ptr(),
			DivMA60:    r.DivMA60.Ptr(),
			RSI:        r.RSI.Ptr(),
			Volatility: r.Volatility.Ptr(),
			VolChange:  r.VolChange.Ptr(),
		}
	}
	return writeAtomic(path, func(w io.Writer) error {
		return goparquet.Write(w, out)
	})
}

// ReadFeatures loads a table written by WriteFeatures.
func ReadFeatures(path string) ([]model.FeatureRow, error) {
	in, err := goparquet.ReadFile[featureRow](path)
	if err != nil {
		return nil, fmt.Errorf("parquet read %s: %w", path, err)
	}

	rows := make([]model.FeatureRow, len(in))
	for i, f := range in {
		d, err := time.Parse(model.DateLayout, f.Date)
		if err != nil {
			return nil, fmt.Errorf("parquet bad date %q: %w", f.Date, err)
		}
		rows[i] = model.FeatureRow{
			Bar:        model.Bar{Date: d, Open: f.Open, High: f.High, Low: f.Low, Close: f.Close, Volume: f.Volume},
			Return1D:   fromPtr(f.Return1D),
			Return5D:   fromPtr(f.Return5D),
			Return20D:  fromPtr(f.Return20D),
			MA5:        fromPtr(f.MA5),
			MA20:       fromPtr(f.MA20),
			MA60:       fromPtr(f.MA60),
			DivMA5:     fromPtr(f.DivMA5),
			DivMA20:    fromPtr(f.DivMA20),
			DivMA60:    fromPtr(f.DivMA60),
			RSI:        fromPtr(f.RSI),
			Volatility: fromPtr(f.Volatility),
			VolChange:  fromPtr(f.VolChange),
		}
	}
	return rows, nil
}

func fromPtr(p *float64) model.NullFloat {
	if p == nil {
		return model.NullFloat{}
	}
	return model.Some(*p)
}
