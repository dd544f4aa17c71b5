package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TokenKind is the closed set of things a postfix token can be.
type TokenKind int

const (
	Number TokenKind = iota
	Plus
	Minus
	Times
	Div
)

func (k TokenKind) String() string {
	switch k {
	case Number:
		return "number"
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Times:
		return "*"
	case Div:
		return "/"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a classified piece of input. Value is only meaningful for Number.
type Token struct {
	Kind  TokenKind
	Value float64
}

// ErrorKind classifies an evaluation failure.
type ErrorKind int

const (
	InvalidOperand ErrorKind = iota + 1
	TermsQuantityInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidOperand:
		return "invalid_operand"
	case TermsQuantityInvalid:
		return "terms_quantity_invalid"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	ErrInvalidOperand       = errors.New("invalid operand")
	ErrTermsQuantityInvalid = errors.New("wrong quantity of terms")
)

// Error is returned by Evaluate. Token and Index point at the token being
// processed when evaluation stopped; Index is -1 when the failure was found
// after the last token.
type Error struct {
	Kind  ErrorKind
	Token string
	Index int
}

func (e *Error) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s at end of expression", e.sentinel())
	}
	return fmt.Sprintf("%s: token %d %q", e.sentinel(), e.Index, e.Token)
}

func (e *Error) sentinel() error {
	if e.Kind == InvalidOperand {
		return ErrInvalidOperand
	}
	return ErrTermsQuantityInvalid
}

// Is lets errors.Is match an *Error against the package sentinels.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

// KindOf reports the evaluation error kind carried anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ParseToken classifies s. Operator symbols are checked before numbers.
func ParseToken(s string) (Token, bool) {
	switch s {
	case "+":
		return Token{Kind: Plus}, true
	case "-":
		return Token{Kind: Minus}, true
	case "*":
		return Token{Kind: Times}, true
	case "/":
		return Token{Kind: Div}, true
	}
	if !isDecimal(s) {
		return Token{}, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// ParseFloat reports out of range literals as ±Inf with ErrRange.
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || numErr.Err != strconv.ErrRange {
			return Token{}, false
		}
	}
	return Token{Kind: Number, Value: v}, true
}

// isDecimal rejects the hexadecimal and underscore forms strconv also accepts.
func isDecimal(s string) bool {
	if s == "" || strings.ContainsRune(s, '_') {
		return false
	}
	t := strings.TrimLeft(s, "+-")
	return !strings.HasPrefix(t, "0x") && !strings.HasPrefix(t, "0X")
}

// Evaluate computes the value of a postfix expression. Tokens are separated by
// single spaces after surrounding whitespace is trimmed.
func Evaluate(expression string) (float64, error) {
	var stack []float64

	for i, field := range strings.Split(strings.TrimSpace(expression), " ") {
		tok, ok := ParseToken(field)
		if !ok {
			return 0, &Error{Kind: InvalidOperand, Token: field, Index: i}
		}
		if tok.Kind == Number {
			stack = append(stack, tok.Value)
			continue
		}
		if len(stack) < 2 {
			return 0, &Error{Kind: TermsQuantityInvalid, Token: field, Index: i}
		}
		rhs := stack[len(stack)-1]
		lhs := stack[len(stack)-2]
		stack = stack[:len(stack)-2]
		stack = append(stack, apply(tok.Kind, lhs, rhs))
	}

	if len(stack) != 1 {
		return 0, &Error{Kind: TermsQuantityInvalid, Index: -1}
	}
	return stack[0], nil
}

func apply(op TokenKind, lhs, rhs float64) float64 {
	switch op {
	case Plus:
		return lhs + rhs
	case Minus:
		return lhs - rhs
	case Times:
		return lhs * rhs
	case Div:
		return lhs / rhs
	}
	panic("agent: apply called with " + op.String())
}

// FormatResult renders v the way results are shown to users.
func FormatResult(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Message maps an evaluation error to the text shown to users.
func Message(err error) string {
	kind, ok := KindOf(err)
	if !ok {
		return err.Error()
	}
	switch kind {
	case InvalidOperand:
		return "Operador inválido"
	default:
		return "Quantidade de termos errada"
	}
}

// CalculatorAgent представляет агента калькулятора
type CalculatorAgent struct{}

// Calculate evaluates a postfix expression.
func (a *CalculatorAgent) Calculate(expression string) (float64, error) {
	return Evaluate(expression)
}
