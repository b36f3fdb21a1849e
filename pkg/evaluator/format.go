package evaluator

import "strconv"

// Format renders v as its canonical decimal string.
// Integral values carry no fractional part, negative zero renders as "0", and
// no exponent notation is used, so a formatted result can be parsed again.
func Format(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
