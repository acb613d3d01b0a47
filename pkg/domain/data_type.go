package domain

import dErrors "tiermask/pkg/domain-errors"

// DataType is the closed category of a sensitive field. Each category has its
// own reveal algorithm and its own row in the masking policy table.
//
// Usage: construct via ParseDataType at trust boundaries; direct casting
// bypasses validation and is only safe for the declared constants.
type DataType string

const (
	DataTypeEmail  DataType = "email"
	DataTypePhone  DataType = "phone"
	DataTypeIBAN   DataType = "iban"
	DataTypeName   DataType = "name"
	DataTypeWallet DataType = "wallet"
	DataTypeIP     DataType = "ip"
	DataTypePlate  DataType = "plate"
	DataTypeVIN    DataType = "vin"
	DataTypeAmount DataType = "amount"
)

// allDataTypes is the single source of truth for the closed set, in
// declaration order.
var allDataTypes = []DataType{
	DataTypeEmail,
	DataTypePhone,
	DataTypeIBAN,
	DataTypeName,
	DataTypeWallet,
	DataTypeIP,
	DataTypePlate,
	DataTypeVIN,
	DataTypeAmount,
}

var validDataTypes = func() map[DataType]bool {
	m := make(map[DataType]bool, len(allDataTypes))
	for _, dt := range allDataTypes {
		m[dt] = true
	}
	return m
}()

// ParseDataType constructs a DataType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not one of the
// supported types.
func ParseDataType(s string) (DataType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "data type cannot be empty")
	}
	dt := DataType(s)
	if !dt.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported data type: "+s)
	}
	return dt, nil
}

// IsValid reports whether the data type is a member of the closed set.
func (d DataType) IsValid() bool {
	return validDataTypes[d]
}

func (d DataType) String() string {
	return string(d)
}

// AllDataTypes returns every supported data type. The slice is a copy.
func AllDataTypes() []DataType {
	return append([]DataType(nil), allDataTypes...)
}
