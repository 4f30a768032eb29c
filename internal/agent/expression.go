// In file: internal/agent/expression.go
package agent

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// allowedExpression is an allow-list, not a grammar: unbalanced parentheses
// and malformed literals pass and are left to the model.
var allowedExpression = regexp.MustCompile(`^[0-9\s+\-*/().]+$`)

// parenthesizedNumber matches a lone numeric literal wrapped in parentheses.
var parenthesizedNumber = regexp.MustCompile(`\(\s*(-?[0-9]*\.?[0-9]+)\s*\)`)

// significantDigits is the precision FormatNumber rounds fractional values to.
// Any decimal of up to 15 significant digits survives a float64 round trip,
// so this drops noise such as 0.30000000000000004 without touching a value
// that was actually written with that many digits.
const significantDigits = 15

// ValidateExpression rejects expressions longer than maxLength characters or
// containing anything but ASCII digits, whitespace, + - * / ( ) and '.'.
func ValidateExpression(expression string, maxLength int) error {
	if utf8.RuneCountInString(expression) > maxLength {
		return &ValidationError{Expression: expression, Limit: maxLength, kind: ErrExpressionTooLong}
	}
	if !allowedExpression.MatchString(expression) {
		return &ValidationError{Expression: expression, Limit: maxLength, kind: ErrInvalidCharacters}
	}
	return nil
}

// FormatNumber is the canonical text form of a number, used to write results
// back into the expression and to render step records: no exponent, no
// trailing zeros, integers without a point. Integral values are written
// exactly; fractional values are rounded to significantDigits.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 0) || math.IsNaN(f):
		return strconv.FormatFloat(f, 'g', -1, 64)
	case f == 0:
		return "0"
	case f == math.Trunc(f):
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', significantDigits, 64), 64)
	if err != nil {
		rounded = f
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// FormatStep renders the trace entry "{a} {op} {b} = {result}".
func FormatStep(a, b float64, op string, result float64) string {
	return fmt.Sprintf("%s %s %s = %s", FormatNumber(a), op, FormatNumber(b), FormatNumber(result))
}

// numberPattern matches the textual forms of f that a human or a previous
// reduction would plausibly have written: the canonical FormatNumber text and
// the exact shortest form of f, each with optional trailing zeros ("3", "3.",
// "3.0", "2.50", ".5").
func numberPattern(f float64) string {
	canonical := FormatNumber(f)
	alternatives := []string{literalPattern(canonical)}
	if !math.IsInf(f, 0) && !math.IsNaN(f) {
		if exact := strconv.FormatFloat(f, 'f', -1, 64); exact != canonical {
			alternatives = append(alternatives, literalPattern(exact))
		}
	}
	return `(?:` + strings.Join(alternatives, "|") + `)`
}

func literalPattern(s string) string {
	var b strings.Builder
	if strings.HasPrefix(s, "-") {
		b.WriteString(`-\s*`)
		s = s[1:]
	}

	intPart, frac, hasFrac := strings.Cut(s, ".")
	switch {
	case hasFrac && intPart == "0":
		b.WriteString(`0?\.` + frac + `0*`)
	case hasFrac:
		b.WriteString(regexp.QuoteMeta(intPart) + `\.` + frac + `0*`)
	default:
		b.WriteString(regexp.QuoteMeta(intPart) + `(?:\.0*)?`)
	}
	return b.String()
}

// ReduceExpression replaces the first textual occurrence of "a op b" in
// expression with the canonical form of result. Any parenthesised lone
// number left behind is unwrapped so the next operation stays adjacent to
// its operands. A missing occurrence is a PatternNotFoundError.
func ReduceExpression(expression string, a, b float64, op string, result float64) (string, error) {
	core := numberPattern(a) + `\s*` + regexp.QuoteMeta(op) + `\s*` + numberPattern(b)
	re, err := regexp.Compile(`(^|[^0-9.])(` + core + `)(?:[^0-9.]|$)`)
	if err != nil {
		return "", fmt.Errorf("failed to build reduction pattern: %w", err)
	}

	loc := re.FindStringSubmatchIndex(expression)
	if loc == nil {
		return "", &PatternNotFoundError{Expression: expression, Step: fmt.Sprintf("%s %s %s", FormatNumber(a), op, FormatNumber(b))}
	}

	reduced := expression[:loc[4]] + FormatNumber(result) + expression[loc[5]:]
	for {
		next := parenthesizedNumber.ReplaceAllString(reduced, "$1")
		if next == reduced {
			return reduced, nil
		}
		reduced = next
	}
}
