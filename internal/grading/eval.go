package grading

import (
	"fmt"
	"strconv"
	"strings"
)

// SanitizeExpression strips every character a Calculation submission is not
// allowed to contain, leaving digits, the four basic operators, parentheses,
// the decimal point, and whitespace.
func SanitizeExpression(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == '+' || r == '-' || r == '*' || r == '/':
			return r
		case r == '(' || r == ')' || r == '.':
			return r
		case r == ' ' || r == '\t':
			return r
		}
		return -1
	}, s))
}

// EvalExpression evaluates a sanitized arithmetic expression with standard
// operator precedence, left-to-right association, and real-valued division.
// It is a small recursive-descent parser over a fixed grammar; user input is
// never handed to anything that executes code.
func EvalExpression(s string) (float64, error) {
	p := &exprParser{input: s}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character at offset %d", p.pos)
	}
	return value, nil
}

type exprParser struct {
	input string
	pos   int
}

// parseExpr handles + and -.
func (p *exprParser) parseExpr() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value -= rhs
		default:
			return value, nil
		}
	}
}

// parseTerm handles * and /. Division by zero yields an infinity, which the
// grader treats as incorrect.
func (p *exprParser) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			value *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			value /= rhs
		default:
			return value, nil
		}
	}
}

// parseFactor handles numbers, parenthesized expressions, and unary signs.
func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpace()
	switch p.peek() {
	case '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis at offset %d", p.pos)
		}
		p.pos++
		return value, nil
	case '-':
		p.pos++
		value, err := p.parseFactor()
		return -value, err
	case '+':
		p.pos++
		return p.parseFactor()
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", p.input[start:p.pos], err)
	}
	return value, nil
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}
