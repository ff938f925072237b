package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pumpwatch/engine/internal/store"
)

// TrendingResponse is the envelope returned by the trending pools endpoint.
type TrendingResponse struct {
	Data []json.RawMessage `json:"data"`
}

// PoolResource represents one element of the data array.
type PoolResource struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes PoolAttributes `json:"attributes"`
}

// PoolAttributes holds the pool fields used for spike detection.
type PoolAttributes struct {
	Name                      string        `json:"name"`
	VolumeUSDChangePercentage PercentString `json:"volume_usd_change_percentage"`
	PriceChangePercentage     PercentString `json:"price_change_percentage"`
}

// PercentString keeps a percentage field as text.
// JSON strings are kept verbatim, numbers are formatted, null stays empty
// and anything else is kept as raw JSON so the evaluator rejects it.
type PercentString string

// UnmarshalJSON implements json.Unmarshaler and never fails.
func (p *PercentString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*p = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*p = PercentString(data)
			return nil
		}
		*p = PercentString(s)
	default:
		if f, err := strconv.ParseFloat(string(data), 64); err == nil {
			*p = PercentString(strconv.FormatFloat(f, 'f', -1, 64))
			return nil
		}
		*p = PercentString(data)
	}
	return nil
}

// ParseTrendingPools decodes a trending pools response body.
// It fails only when the envelope itself is unreadable; per-record decode
// errors are returned separately so the remaining pools are kept.
func ParseTrendingPools(data []byte) ([]store.Pool, []error, error) {
	var envelope TrendingResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode failed: %w", err)
	}

	pools := make([]store.Pool, 0, len(envelope.Data))
	var skipped []error

	for i, raw := range envelope.Data {
		var res PoolResource
		if err := json.Unmarshal(raw, &res); err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		pools = append(pools, convertPool(res))
	}

	return pools, skipped, nil
}

// convertPool converts a PoolResource to store.Pool.
func convertPool(res PoolResource) store.Pool {
	return store.Pool{
		ID:           res.ID,
		Address:      PoolAddress(res.ID),
		Name:         res.Attributes.Name,
		VolumeChange: string(res.Attributes.VolumeUSDChangePercentage),
		PriceChange:  string(res.Attributes.PriceChangePercentage),
	}
}
