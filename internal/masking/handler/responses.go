package handler

import "tiermask/internal/masking/service"

// MaskResponse is the HTTP response for POST /v1/mask.
type MaskResponse struct {
	// Value is null when the input was null or empty.
	Value    *string `json:"value"`
	Revealed bool    `json:"revealed"`
	RuleID   string  `json:"rule_id,omitempty"`
}

// MaskRecordResponse is the HTTP response for POST /v1/mask/record.
type MaskRecordResponse struct {
	Record map[string]any `json:"record"`
}

// FromResult converts a service Result to an HTTP response.
func FromResult(res service.Result) *MaskResponse {
	return &MaskResponse{
		Value:    res.Ptr(),
		Revealed: res.Revealed,
		RuleID:   res.RuleID,
	}
}
