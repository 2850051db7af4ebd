package internal

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// String value constants for type conversions
const (
	StringValueTrue  = "true"
	StringValueFalse = "false"
	StringValueEmpty = ""
)

// Numeric constants for conversions
const (
	FloatFormatFlag   = 'f'
	FloatPrecisionAll = -1
	FloatBitSize64    = 64
	FloatBitSize32    = 32
	IntBase10         = 10
)

// toString accepts strings and Stringers only
func toString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return "", false
	}
}

// ValueToString converts a value to its canonical text form.
// nil becomes the empty string; floats use the shortest representation that
// round-trips.
func ValueToString(v any) string {
	if v == nil {
		return StringValueEmpty
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return StringValueTrue
		}
		return StringValueFalse
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(val).Int(), IntBase10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(val).Uint(), IntBase10)
	case float64:
		return strconv.FormatFloat(val, FloatFormatFlag, FloatPrecisionAll, FloatBitSize64)
	case float32:
		return strconv.FormatFloat(float64(val), FloatFormatFlag, FloatPrecisionAll, FloatBitSize32)
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// anyToInt converts a numeric value to an integer. Floats must be whole.
func anyToInt(v any, funcName string, argIndex int) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case int32:
		return int(val), nil
	case float64:
		if val != math.Trunc(val) {
			return 0, NewFuncTypeError(ErrMsgFuncExpectedInt, funcName, argIndex)
		}
		return int(val), nil
	default:
		return 0, NewFuncTypeError(ErrMsgFuncExpectedInt, funcName, argIndex)
	}
}

// anyToFloat converts a numeric value to a float64
func anyToFloat(v any, funcName string, argIndex int) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int32:
		return float64(val), nil
	default:
		return 0, NewFuncTypeError(ErrMsgFuncExpectedNumber, funcName, argIndex)
	}
}
