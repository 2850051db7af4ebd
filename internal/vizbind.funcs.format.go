package internal

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// registerNumberFuncs registers numeric formatting functions
func registerNumberFuncs(r *FuncRegistry) {
	// percentage(value number, digits int = 2) string
	r.MustRegister(&Func{
		Name:    FuncNamePercentage,
		MinArgs: 1,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			v, digits, err := numberAndDigits(FuncNamePercentage, args)
			if err != nil {
				return nil, err
			}
			return formatFixed(v*100, digits) + PercentSuffix, nil
		},
	})

	// round(value number, digits int = 2) string
	r.MustRegister(&Func{
		Name:    FuncNameRound,
		MinArgs: 1,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			v, digits, err := numberAndDigits(FuncNameRound, args)
			if err != nil {
				return nil, err
			}
			return formatFixed(v, digits), nil
		},
	})
}

// registerStringFuncs registers string formatting functions
func registerStringFuncs(r *FuncRegistry) {
	// capitalize(s string) string
	r.MustRegister(&Func{
		Name:    FuncNameCapitalize,
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			s, ok := toString(args[ArgIndexFirst])
			if !ok {
				return nil, NewFuncTypeError(ErrMsgFuncExpectedString, FuncNameCapitalize, ArgIndexFirst)
			}
			return capitalize(s), nil
		},
	})

	// uppercase(s string) string
	r.MustRegister(&Func{
		Name:    FuncNameUppercase,
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(args []any) (any, error) {
			s, ok := toString(args[ArgIndexFirst])
			if !ok {
				return nil, NewFuncTypeError(ErrMsgFuncExpectedString, FuncNameUppercase, ArgIndexFirst)
			}
			return strings.ToUpper(s), nil
		},
	})

	// truncate(s string, length int) string
	r.MustRegister(&Func{
		Name:    FuncNameTruncate,
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			s, ok := toString(args[ArgIndexFirst])
			if !ok {
				return nil, NewFuncTypeError(ErrMsgFuncExpectedString, FuncNameTruncate, ArgIndexFirst)
			}
			length, err := anyToInt(args[ArgIndexSecond], FuncNameTruncate, ArgIndexSecond)
			if err != nil {
				return nil, err
			}
			if length < 0 {
				return nil, NewFuncTypeError(ErrMsgFuncNegativeArgument, FuncNameTruncate, ArgIndexSecond)
			}
			return truncate(s, length), nil
		},
	})

	// abbreviate_name(name string, keep_first bool = true) string
	r.MustRegister(&Func{
		Name:    FuncNameAbbreviateName,
		MinArgs: 1,
		MaxArgs: 2,
		Fn: func(args []any) (any, error) {
			s, ok := toString(args[ArgIndexFirst])
			if !ok {
				return nil, NewFuncTypeError(ErrMsgFuncExpectedString, FuncNameAbbreviateName, ArgIndexFirst)
			}
			keepFirst := true
			if len(args) > ArgIndexSecond {
				b, ok := args[ArgIndexSecond].(bool)
				if !ok {
					return nil, NewFuncTypeError(ErrMsgFuncExpectedBool, FuncNameAbbreviateName, ArgIndexSecond)
				}
				keepFirst = b
			}
			return abbreviateName(s, keepFirst), nil
		},
	})
}

func numberAndDigits(funcName string, args []any) (float64, int, error) {
	v, err := anyToFloat(args[ArgIndexFirst], funcName, ArgIndexFirst)
	if err != nil {
		return 0, 0, err
	}
	digits := DefaultDigits
	if len(args) > ArgIndexSecond {
		digits, err = anyToInt(args[ArgIndexSecond], funcName, ArgIndexSecond)
		if err != nil {
			return 0, 0, err
		}
		if digits < 0 {
			return 0, 0, NewFuncTypeError(ErrMsgFuncNegativeArgument, funcName, ArgIndexSecond)
		}
	}
	return v, digits, nil
}

// formatFixed formats v with exactly digits decimals. Rounding works on the
// exact binary value, so 1.005 rounds to "1.00".
func formatFixed(v float64, digits int) string {
	return strconv.FormatFloat(v, FloatFormatFlag, digits, FloatBitSize64)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// truncate keeps the first length characters (not bytes)
func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	return string([]rune(s)[:length]) + TruncateEllipsis
}

func abbreviateName(s string, keepFirst bool) string {
	parts := strings.Fields(s)
	if len(parts) <= 1 {
		return s
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		keep := (keepFirst && i == 0) || (!keepFirst && i == len(parts)-1)
		if keep {
			out[i] = p
			continue
		}
		out[i] = initial(p)
	}
	return strings.Join(out, " ")
}

func initial(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	return strings.ToUpper(string(r)) + InitialSuffix
}
