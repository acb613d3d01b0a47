package handler

import (
	"strings"

	"tiermask/internal/masking/policy"
	"tiermask/pkg/domain"
	dErrors "tiermask/pkg/domain-errors"
)

const maxRecordFields = 256

// MaskRequest is the HTTP request body for POST /v1/mask.
type MaskRequest struct {
	// Value is a string, a number, or null.
	Value    any    `json:"value"`
	DataType string `json:"data_type"`
}

// Validate normalizes the data type. Unknown data types are passed through;
// the service resolves them to the most restrictive output.
// Implements httputil.Validator.
func (r *MaskRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.DataType = strings.ToLower(strings.TrimSpace(r.DataType))
	if r.DataType == "" {
		return dErrors.New(dErrors.CodeValidation, "data_type is required")
	}
	return nil
}

// ParsedDataType returns the normalized data type.
func (r *MaskRequest) ParsedDataType() domain.DataType {
	return domain.DataType(r.DataType)
}

// MaskRecordRequest is the HTTP request body for POST /v1/mask/record.
type MaskRecordRequest struct {
	Record    map[string]any                  `json:"record"`
	Fields    map[string]string               `json:"fields"`
	Overrides map[string]policy.OverrideInput `json:"overrides,omitempty"`

	parsedFields map[string]domain.DataType
}

// Validate checks the record shape and normalizes the field map.
// Implements httputil.Validator.
func (r *MaskRecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Record == nil {
		return dErrors.New(dErrors.CodeValidation, "record is required")
	}
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "fields must not be empty")
	}
	if len(r.Fields) > maxRecordFields {
		return dErrors.New(dErrors.CodeValidation, "too many fields")
	}

	r.parsedFields = make(map[string]domain.DataType, len(r.Fields))
	for field, dt := range r.Fields {
		if strings.TrimSpace(field) == "" {
			return dErrors.New(dErrors.CodeValidation, "field names must not be empty")
		}
		r.parsedFields[field] = domain.DataType(strings.ToLower(strings.TrimSpace(dt)))
	}
	return nil
}

// ParsedFields returns the normalized field map.
func (r *MaskRecordRequest) ParsedFields() map[string]domain.DataType {
	return r.parsedFields
}
