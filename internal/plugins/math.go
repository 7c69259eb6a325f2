package plugins

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MathPlugin answers arithmetic queries without any network call. Expressions
// are evaluated by a small recursive-descent parser over a restricted grammar
// (numbers, + - * / ^ and parentheses); there is no general interpreter and no
// code execution path.
type MathPlugin struct{}

// NewMathPlugin constructs the math plugin.
func NewMathPlugin() *MathPlugin {
	return &MathPlugin{}
}

var mathExprPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what\s+is\s+([\d\s.+\-*/^()]+)\s*\??`),
	regexp.MustCompile(`(?i)calculate\s+([\d\s.+\-*/^()]+)`),
	regexp.MustCompile(`(?i)solve\s+([\d\s.+\-*/^()]+)`),
	regexp.MustCompile(`([\d\s.+\-*/^()]+)\s*=\s*\??`),
	regexp.MustCompile(`([\d\s.+\-*/^()]+)`),
}

var (
	sqrtPattern      = regexp.MustCompile(`(?i)square\s+root\s+of\s+([\d.]+)|sqrt\s*\(\s*([\d.]+)\s*\)`)
	cbrtPattern      = regexp.MustCompile(`(?i)cube\s+root\s+of\s+([\d.]+)`)
	powerPattern     = regexp.MustCompile(`(?i)([\d.]+)\s+to\s+the\s+power\s+of\s+([\d.]+)`)
	trigPattern      = regexp.MustCompile(`(?i)(sin|cos|tan)\s*\(\s*([\d.]+)\s*\)`)
	percentPattern   = regexp.MustCompile(`(?i)([\d.]+)\s*(?:%|\s+percent)\s+of\s+([\d.]+)`)
	factorialPattern = regexp.MustCompile(`(?i)(\d+)!|factorial\s+of\s+(\d+)`)
	averagePattern   = regexp.MustCompile(`(?i)(?:average|mean)\s+of\s+([\d\s,.]+)`)
	piPattern        = regexp.MustCompile(`(?i)\bpi\b`)
	eulerPattern     = regexp.MustCompile(`(?i)\beuler\b`)
	bareNumber       = regexp.MustCompile(`^\d+\.?\d*$`)
)

// Evaluate answers a math query. The boolean is false when the query does not
// look like a math request at all.
func (p *MathPlugin) Evaluate(query string) (string, bool) {
	if result, ok := p.special(query); ok {
		return result, true
	}

	for _, pattern := range mathExprPatterns {
		match := pattern.FindStringSubmatch(query)
		if match == nil || strings.TrimSpace(match[1]) == "" {
			continue
		}
		expr := strings.TrimSpace(match[1])

		// A bare number is not a calculation unless explicitly asked for.
		if bareNumber.MatchString(expr) && !strings.Contains(strings.ToLower(query), "what is") {
			continue
		}

		value, err := evalExpression(expr)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		return fmt.Sprintf("%s = %s", expr, formatNumber(value)), true
	}

	return "", false
}

func (p *MathPlugin) special(query string) (string, bool) {
	if m := sqrtPattern.FindStringSubmatch(query); m != nil {
		n := parseFirst(m[1:])
		return fmt.Sprintf("√%s = %.4f", formatNumber(n), math.Sqrt(n)), true
	}
	if m := cbrtPattern.FindStringSubmatch(query); m != nil {
		n := parseFirst(m[1:])
		return fmt.Sprintf("∛%s = %.4f", formatNumber(n), math.Cbrt(n)), true
	}
	if m := powerPattern.FindStringSubmatch(query); m != nil {
		base, exp := parseFirst(m[1:2]), parseFirst(m[2:3])
		return fmt.Sprintf("%s^%s = %.4f", formatNumber(base), formatNumber(exp), math.Pow(base, exp)), true
	}
	if m := trigPattern.FindStringSubmatch(query); m != nil {
		fn := strings.ToLower(m[1])
		n := parseFirst(m[2:3])
		var value float64
		switch fn {
		case "sin":
			value = math.Sin(n)
		case "cos":
			value = math.Cos(n)
		case "tan":
			value = math.Tan(n)
		}
		return fmt.Sprintf("%s(%s) = %.4f", fn, formatNumber(n), value), true
	}
	if m := percentPattern.FindStringSubmatch(query); m != nil {
		percent, total := parseFirst(m[1:2]), parseFirst(m[2:3])
		return fmt.Sprintf("%s%% of %s = %.2f", formatNumber(percent), formatNumber(total), percent/100*total), true
	}
	if m := factorialPattern.FindStringSubmatch(query); m != nil {
		n, _ := strconv.Atoi(firstNonEmpty(m[1:]))
		if n > 20 {
			return fmt.Sprintf("Factorial of %d is too large to calculate", n), true
		}
		return fmt.Sprintf("%d! = %d", n, factorial(n)), true
	}
	if m := averagePattern.FindStringSubmatch(query); m != nil {
		numbers := parseNumberList(m[1])
		if len(numbers) > 0 {
			var sum float64
			for _, n := range numbers {
				sum += n
			}
			return fmt.Sprintf("Average of [%s] = %.2f", joinNumbers(numbers), sum/float64(len(numbers))), true
		}
	}
	if piPattern.MatchString(query) {
		return fmt.Sprintf("π = %.6f", math.Pi), true
	}
	if eulerPattern.MatchString(query) {
		return fmt.Sprintf("e = %.6f", math.E), true
	}
	return "", false
}

func factorial(n int) int64 {
	result := int64(1)
	for i := 2; i <= n; i++ {
		result *= int64(i)
	}
	return result
}

func parseFirst(groups []string) float64 {
	value, _ := strconv.ParseFloat(firstNonEmpty(groups), 64)
	return value
}

func firstNonEmpty(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}

func parseNumberList(raw string) []float64 {
	var numbers []float64
	for _, field := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if n, err := strconv.ParseFloat(field, 64); err == nil {
			numbers = append(numbers, n)
		}
	}
	return numbers
}

func joinNumbers(numbers []float64) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = formatNumber(n)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
