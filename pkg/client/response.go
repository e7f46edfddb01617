package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// RawResponse is the backend reply exactly as far as it could be read. The
// backend only promises a verdict; every field is optional here and a field
// holding the wrong JSON type is treated as absent.
type RawResponse struct {
	Verdict     *string  `json:"verdict,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Original    *string  `json:"original,omitempty"`
	Processed   *string  `json:"processed,omitempty"`
	Details     *string  `json:"details,omitempty"`
	Explanation *string  `json:"explanation,omitempty"`
}

// DecodeRawResponse parses a reply body. It fails only when the body is not
// a JSON object.
func DecodeRawResponse(body []byte) (*RawResponse, error) {
	var raw RawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &raw, nil
}

// UnmarshalJSON implements json.Unmarshaler with per-field leniency.
func (r *RawResponse) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: null body", ErrMalformedResponse)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	*r = RawResponse{
		Verdict:     optString(fields["verdict"]),
		Confidence:  optNumber(fields["confidence"]),
		Original:    optString(fields["original"]),
		Processed:   optString(fields["processed"]),
		Details:     optString(fields["details"]),
		Explanation: optString(fields["explanation"]),
	}
	return nil
}

func optString(v json.RawMessage) *string {
	if isAbsent(v) {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil
	}
	return &s
}

func optNumber(v json.RawMessage) *float64 {
	if isAbsent(v) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return nil
	}
	return &f
}

func isAbsent(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}
