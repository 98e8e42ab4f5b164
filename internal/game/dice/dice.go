// Package dice rolls the dice expressions effect scripts use for magnitudes,
// such as poison damage per tick.
package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression is a parsed "NdS+M" expression. Count is 0 for a constant.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

var exprPattern = regexp.MustCompile(`^(?:(\d*)d(\d+))?([+-]\d+)?$`)

// Parse parses "d20", "2d6", "2d6+3", "1d4-1" or a bare constant such as "5".
//
// Postcondition: Returns an Expression with Count >= 1 and Sides >= 2, or
// Count == 0 for a constant, or an error naming the input.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Expression{Raw: expr, Modifier: n}, nil
	}
	m := exprPattern.FindStringSubmatch(s)
	if m == nil || m[2] == "" {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}
	e := Expression{Raw: expr, Count: 1}
	if m[1] != "" {
		e.Count, _ = strconv.Atoi(m[1])
	}
	e.Sides, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		e.Modifier, _ = strconv.Atoi(m[3])
	}
	if e.Count < 1 || e.Count > 100 {
		return Expression{}, fmt.Errorf("dice: die count in %q must be in [1, 100]", expr)
	}
	if e.Sides < 2 {
		return Expression{}, fmt.Errorf("dice: die sides in %q must be >= 2", expr)
	}
	return e, nil
}

// MustParse is Parse for expressions known at compile time.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Min and Max are the bounds of the expression's total.
func (e Expression) Min() int { return e.Count + e.Modifier }

func (e Expression) Max() int { return e.Count*e.Sides + e.Modifier }

// Result is one evaluated expression.
//
// Invariant: Total() == sum(Dice) + Modifier.
type Result struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of the dice plus the modifier.
func (r Result) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// DiceSum returns the sum of the dice alone.
func (r Result) DiceSum() int { return r.Total() - r.Modifier }

func (r Result) String() string {
	return fmt.Sprintf("%s = %v%+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Roll evaluates e with src.
func Roll(e Expression, src Source) Result {
	res := Result{Expression: e.Raw, Dice: make([]int, e.Count), Modifier: e.Modifier}
	for i := range res.Dice {
		res.Dice[i] = src.Intn(e.Sides) + 1
	}
	return res
}
