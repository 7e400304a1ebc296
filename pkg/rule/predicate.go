// Package rule evaluates boolean entry and exit conditions over an indicator frame.
//
// Conditions are trees of predicates. Leaves compare columns with constants or with
// each other, detect crossovers or classify the candle body; And, Or and Not combine
// them. A predicate only reads the current index and a small fixed number of candles
// before it, and any undefined input makes it false, including under Not.
package rule

import (
	"fmt"
	"math"
	"strings"

	"github.com/rxtech-lab/argo-signal/pkg/indicator"
)

// MaxShift is the furthest back an operand may look.
const MaxShift = 10

// Predicate is a boolean condition evaluated at one candle index.
type Predicate interface {
	// Eval reports whether the condition holds at index i. Undefined inputs yield false.
	Eval(f *indicator.Frame, i int) bool
	// Defined reports whether every input the predicate reads at index i is defined.
	Defined(f *indicator.Frame, i int) bool
	// Columns lists the frame columns the predicate reads.
	Columns() []string
	// Lookback returns how many candles before i the predicate reads.
	Lookback() int
}

// Operand reads Column at Shift candles before the evaluated index, multiplied by Scale.
// A zero Scale means 1.
type Operand struct {
	Column string
	Shift  int
	Scale  float64
}

func (o Operand) value(f *indicator.Frame, i int) float64 {
	v := f.Value(o.Column, i-o.Shift)
	if o.Scale != 0 {
		v *= o.Scale
	}

	return v
}

func (o Operand) defined(f *indicator.Frame, i int) bool {
	return !math.IsNaN(f.Value(o.Column, i-o.Shift))
}

func (o Operand) String() string {
	var b strings.Builder

	b.WriteString(o.Column)

	if o.Shift > 0 {
		fmt.Fprintf(&b, "[-%d]", o.Shift)
	}

	if o.Scale != 0 && o.Scale != 1 {
		fmt.Fprintf(&b, "*%g", o.Scale)
	}

	return b.String()
}

// Comparison is a binary comparison operator.
type Comparison string

const (
	GreaterThan    Comparison = ">"
	GreaterOrEqual Comparison = ">="
	LessThan       Comparison = "<"
	LessOrEqual    Comparison = "<="
	Equal          Comparison = "=="
	NotEqual       Comparison = "!="
)

// Valid reports whether c is a known operator.
func (c Comparison) Valid() bool {
	switch c {
	case GreaterThan, GreaterOrEqual, LessThan, LessOrEqual, Equal, NotEqual:
		return true
	default:
		return false
	}
}

// Compare applies the operator. Any NaN operand makes the comparison false.
func (c Comparison) Compare(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}

	switch c {
	case GreaterThan:
		return a > b
	case GreaterOrEqual:
		return a >= b
	case LessThan:
		return a < b
	case LessOrEqual:
		return a <= b
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	default:
		return false
	}
}

// Threshold compares an operand with a constant.
type Threshold struct {
	Left  Operand
	Op    Comparison
	Value float64
}

func (t Threshold) Eval(f *indicator.Frame, i int) bool {
	if !inRange(f, i) {
		return false
	}

	return t.Op.Compare(t.Left.value(f, i), t.Value)
}

func (t Threshold) Defined(f *indicator.Frame, i int) bool {
	return inRange(f, i) && t.Left.defined(f, i)
}

func (t Threshold) Columns() []string {
	return []string{t.Left.Column}
}

func (t Threshold) Lookback() int {
	return t.Left.Shift
}

func (t Threshold) String() string {
	return fmt.Sprintf("%s %s %g", t.Left, t.Op, t.Value)
}

// RelativeCompare compares two operands.
type RelativeCompare struct {
	Left  Operand
	Op    Comparison
	Right Operand
}

func (r RelativeCompare) Eval(f *indicator.Frame, i int) bool {
	if !inRange(f, i) {
		return false
	}

	return r.Op.Compare(r.Left.value(f, i), r.Right.value(f, i))
}

func (r RelativeCompare) Defined(f *indicator.Frame, i int) bool {
	return inRange(f, i) && r.Left.defined(f, i) && r.Right.defined(f, i)
}

func (r RelativeCompare) Columns() []string {
	return []string{r.Left.Column, r.Right.Column}
}

func (r RelativeCompare) Lookback() int {
	return max(r.Left.Shift, r.Right.Shift)
}

func (r RelativeCompare) String() string {
	return fmt.Sprintf("%s %s %s", r.Left, r.Op, r.Right)
}

// CrossDirection selects which way a crossover must happen.
type CrossDirection string

const (
	CrossAbove CrossDirection = "above"
	CrossBelow CrossDirection = "below"
)

// Crossover holds on the candle where Left moves from at-or-below Right to above it
// (CrossAbove), or from at-or-above to below it (CrossBelow).
type Crossover struct {
	Left      Operand
	Right     Operand
	Direction CrossDirection
}

func (c Crossover) Eval(f *indicator.Frame, i int) bool {
	if !inRange(f, i) {
		return false
	}

	prevLeft, prevRight := c.Left.value(f, i-1), c.Right.value(f, i-1)
	left, right := c.Left.value(f, i), c.Right.value(f, i)

	switch c.Direction {
	case CrossAbove:
		return GreaterThan.Compare(left, right) && LessOrEqual.Compare(prevLeft, prevRight)
	case CrossBelow:
		return LessThan.Compare(left, right) && GreaterOrEqual.Compare(prevLeft, prevRight)
	default:
		return false
	}
}

func (c Crossover) Defined(f *indicator.Frame, i int) bool {
	return inRange(f, i) &&
		c.Left.defined(f, i) && c.Right.defined(f, i) &&
		c.Left.defined(f, i-1) && c.Right.defined(f, i-1)
}

func (c Crossover) Columns() []string {
	return []string{c.Left.Column, c.Right.Column}
}

func (c Crossover) Lookback() int {
	return max(c.Left.Shift, c.Right.Shift) + 1
}

func (c Crossover) String() string {
	return fmt.Sprintf("%s crosses %s %s", c.Left, c.Direction, c.Right)
}

// Shape classifies a candle body.
type Shape string

const (
	ShapeGreen Shape = "green"
	ShapeRed   Shape = "red"
)

// CandleShape holds when the candle Shift positions back has the given body.
type CandleShape struct {
	Shape Shape
	Shift int
}

func (s CandleShape) Eval(f *indicator.Frame, i int) bool {
	j := i - s.Shift
	if !inRange(f, i) || j < 0 {
		return false
	}

	c := f.Candle(j)

	switch s.Shape {
	case ShapeGreen:
		return c.IsGreen()
	case ShapeRed:
		return c.IsRed()
	default:
		return false
	}
}

func (s CandleShape) Defined(f *indicator.Frame, i int) bool {
	return inRange(f, i) && i-s.Shift >= 0
}

func (s CandleShape) Columns() []string {
	return []string{"open", "close"}
}

func (s CandleShape) Lookback() int {
	return s.Shift
}

func (s CandleShape) String() string {
	if s.Shift > 0 {
		return fmt.Sprintf("%s[-%d]", s.Shape, s.Shift)
	}

	return string(s.Shape)
}

// And holds when every child holds. An empty And never holds.
type And []Predicate

func (a And) Eval(f *indicator.Frame, i int) bool {
	if len(a) == 0 {
		return false
	}

	for _, p := range a {
		if !p.Eval(f, i) {
			return false
		}
	}

	return true
}

func (a And) Defined(f *indicator.Frame, i int) bool {
	return childrenDefined(a, f, i)
}

func (a And) Columns() []string {
	return childColumns(a)
}

func (a And) Lookback() int {
	return childLookback(a)
}

func (a And) String() string {
	return join(a, " AND ")
}

// Or holds when any child holds.
type Or []Predicate

func (o Or) Eval(f *indicator.Frame, i int) bool {
	for _, p := range o {
		if p.Eval(f, i) {
			return true
		}
	}

	return false
}

func (o Or) Defined(f *indicator.Frame, i int) bool {
	return childrenDefined(o, f, i)
}

func (o Or) Columns() []string {
	return childColumns(o)
}

func (o Or) Lookback() int {
	return childLookback(o)
}

func (o Or) String() string {
	return join(o, " OR ")
}

// Not negates its child. It is false whenever any input of the child is undefined.
type Not struct {
	Child Predicate
}

func (n Not) Eval(f *indicator.Frame, i int) bool {
	if !n.Defined(f, i) {
		return false
	}

	return !n.Child.Eval(f, i)
}

func (n Not) Defined(f *indicator.Frame, i int) bool {
	return inRange(f, i) && n.Child.Defined(f, i)
}

func (n Not) Columns() []string {
	return n.Child.Columns()
}

func (n Not) Lookback() int {
	return n.Child.Lookback()
}

func (n Not) String() string {
	return fmt.Sprintf("NOT %v", n.Child)
}

func inRange(f *indicator.Frame, i int) bool {
	return f != nil && i >= 0 && i < f.Len()
}

func childrenDefined(children []Predicate, f *indicator.Frame, i int) bool {
	if !inRange(f, i) {
		return false
	}

	for _, p := range children {
		if !p.Defined(f, i) {
			return false
		}
	}

	return true
}

func childColumns(children []Predicate) []string {
	var out []string

	seen := make(map[string]bool)

	for _, p := range children {
		for _, column := range p.Columns() {
			if !seen[column] {
				seen[column] = true
				out = append(out, column)
			}
		}
	}

	return out
}

func childLookback(children []Predicate) int {
	lookback := 0
	for _, p := range children {
		lookback = max(lookback, p.Lookback())
	}

	return lookback
}

func join(children []Predicate, sep string) string {
	parts := make([]string, len(children))
	for i, p := range children {
		parts[i] = fmt.Sprintf("%v", p)
	}

	return "(" + strings.Join(parts, sep) + ")"
}
