// Package market holds the candle data model, the local candle cache, and
// the live kline stream.
package market

import "time"

type Candle struct {
	OpenTime time.Time `msgpack:"t" json:"open_time"`
	Open     float64   `msgpack:"o" json:"open"`
	High     float64   `msgpack:"h" json:"high"`
	Low      float64   `msgpack:"l" json:"low"`
	Close    float64   `msgpack:"c" json:"close"`
	Volume   float64   `msgpack:"v" json:"volume"`
}

// Closes extracts the close series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Append adds a candle to the window, replacing the last entry when the open
// time matches (a still-forming bar updating in place), and trims the window
// to max entries.
func Append(window []Candle, c Candle, max int) []Candle {
	if n := len(window); n > 0 && window[n-1].OpenTime.Equal(c.OpenTime) {
		window[n-1] = c
	} else {
		window = append(window, c)
	}
	if max > 0 && len(window) > max {
		window = window[len(window)-max:]
	}
	return window
}
