package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads candles from a CSV file with a
// timestamp,open,high,low,close,volume header. Timestamps are RFC 3339 or
// unix milliseconds.
func LoadCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func ReadCSV(r io.Reader) ([]Candle, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv missing %q column", required)
		}
	}

	var out []Candle
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := parseTimestamp(record[cols["timestamp"]])
		if err != nil {
			return nil, err
		}
		candle := Candle{OpenTime: ts}
		fields := []struct {
			dst *float64
			col string
		}{
			{&candle.Open, "open"},
			{&candle.High, "high"},
			{&candle.Low, "low"},
			{&candle.Close, "close"},
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[cols[f.col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s at %s: %w", f.col, ts, err)
			}
			*f.dst = v
		}
		if i, ok := cols["volume"]; ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("parse volume at %s: %w", ts, err)
			}
			candle.Volume = v
		}
		out = append(out, candle)
	}
	return out, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
