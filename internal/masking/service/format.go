package service

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// formatRaw renders a supported input shape as the string the masker sees.
// ok is false for nil and for unsupported shapes. Floats use the shortest
// representation that round-trips, so an admin sees exactly the stored value.
func formatRaw(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case json.Number:
		return v.String(), true
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

func isNilPointer(raw any) bool {
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// isNull reports whether raw is nil, a nil pointer, or a supported shape
// that renders empty or whitespace only.
func isNull(raw any) bool {
	if raw == nil || isNilPointer(raw) {
		return true
	}
	v, ok := formatRaw(raw)
	return ok && strings.TrimSpace(v) == ""
}
