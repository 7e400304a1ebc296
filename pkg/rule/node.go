package rule

import (
	"fmt"
	"sort"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/indicator"
)

// Node is the declarative form of a predicate tree as written in strategy files.
// Exactly one field must be set.
//
//	entry:
//	  all:
//	    - compare: {left: {column: ema_fast}, op: ">", right: {column: ema_slow}}
//	    - threshold: {column: rsi, op: "<", value: 75}
//	    - cross: {left: {column: macd}, direction: above, right: {column: macdsignal}}
type Node struct {
	All       []Node         `yaml:"all,omitempty" json:"all,omitempty" jsonschema:"title=All,description=Holds when every child holds"`
	Any       []Node         `yaml:"any,omitempty" json:"any,omitempty" jsonschema:"title=Any,description=Holds when any child holds"`
	Not       *Node          `yaml:"not,omitempty" json:"not,omitempty" jsonschema:"title=Not,description=Negates the child. False while any input of the child is undefined"`
	Threshold *ThresholdNode `yaml:"threshold,omitempty" json:"threshold,omitempty" jsonschema:"title=Threshold,description=Column compared with a constant"`
	Compare   *CompareNode   `yaml:"compare,omitempty" json:"compare,omitempty" jsonschema:"title=Compare,description=Column compared with another column"`
	Cross     *CrossNode     `yaml:"cross,omitempty" json:"cross,omitempty" jsonschema:"title=Cross,description=One column crossing another"`
	Shape     *ShapeNode     `yaml:"shape,omitempty" json:"shape,omitempty" jsonschema:"title=Shape,description=Candle body classification"`
	Score     *ScoreNode     `yaml:"score,omitempty" json:"score,omitempty" jsonschema:"title=Score,description=External model output compared with a constant"`
}

// OperandNode addresses a column value, optionally shifted back and scaled.
type OperandNode struct {
	Column string  `yaml:"column" json:"column" jsonschema:"title=Column,required"`
	Shift  int     `yaml:"shift,omitempty" json:"shift,omitempty" jsonschema:"title=Shift,minimum=0,maximum=10"`
	Scale  float64 `yaml:"scale,omitempty" json:"scale,omitempty" jsonschema:"title=Scale,description=Multiplier applied to the value (default 1)"`
}

type ThresholdNode struct {
	OperandNode `yaml:",inline"`
	Op          string  `yaml:"op" json:"op" jsonschema:"title=Operator,required,enum=>,enum=>=,enum=<,enum=<=,enum===,enum=!="`
	Value       float64 `yaml:"value" json:"value" jsonschema:"title=Value"`
}

type CompareNode struct {
	Left  OperandNode `yaml:"left" json:"left" jsonschema:"required"`
	Op    string      `yaml:"op" json:"op" jsonschema:"title=Operator,required,enum=>,enum=>=,enum=<,enum=<=,enum===,enum=!="`
	Right OperandNode `yaml:"right" json:"right" jsonschema:"required"`
}

type CrossNode struct {
	Left      OperandNode `yaml:"left" json:"left" jsonschema:"required"`
	Direction string      `yaml:"direction" json:"direction" jsonschema:"title=Direction,required,enum=above,enum=below"`
	Right     OperandNode `yaml:"right" json:"right" jsonschema:"required"`
}

type ShapeNode struct {
	Candle string `yaml:"candle" json:"candle" jsonschema:"title=Candle,required,enum=green,enum=red"`
	Shift  int    `yaml:"shift,omitempty" json:"shift,omitempty" jsonschema:"title=Shift,minimum=0,maximum=10"`
}

type ScoreNode struct {
	Model string  `yaml:"model" json:"model" jsonschema:"title=Model,required"`
	Op    string  `yaml:"op" json:"op" jsonschema:"title=Operator,required,enum=>,enum=>=,enum=<,enum=<=,enum===,enum=!="`
	Value float64 `yaml:"value" json:"value" jsonschema:"title=Value"`
}

// IsZero reports whether no field of the node is set.
func (n Node) IsZero() bool {
	return n.kinds() == nil
}

func (n Node) kinds() []string {
	var kinds []string

	if n.All != nil {
		kinds = append(kinds, "all")
	}

	if n.Any != nil {
		kinds = append(kinds, "any")
	}

	if n.Not != nil {
		kinds = append(kinds, "not")
	}

	if n.Threshold != nil {
		kinds = append(kinds, "threshold")
	}

	if n.Compare != nil {
		kinds = append(kinds, "compare")
	}

	if n.Cross != nil {
		kinds = append(kinds, "cross")
	}

	if n.Shape != nil {
		kinds = append(kinds, "shape")
	}

	if n.Score != nil {
		kinds = append(kinds, "score")
	}

	return kinds
}

// CompileOptions carries what a tree may reference.
type CompileOptions struct {
	// Columns are the indicator columns the tree may read besides the raw candle fields.
	Columns []string
	// Scorers resolves score nodes by model name.
	Scorers Scorers
}

// Compile turns a declarative node into a predicate.
// Malformed trees, unknown operators, out-of-range shifts, unknown columns and unknown
// models are reported as configuration errors naming the offending path.
func Compile(node Node, opts CompileOptions) (Predicate, error) {
	return compileAt(node, "rule", newCompiler(opts))
}

type compiler struct {
	columns map[string]bool
	scorers Scorers
}

func newCompiler(opts CompileOptions) *compiler {
	c := &compiler{columns: make(map[string]bool), scorers: opts.Scorers}
	for _, column := range opts.Columns {
		c.columns[column] = true
	}

	return c
}

func compileAt(node Node, path string, c *compiler) (Predicate, error) {
	kinds := node.kinds()

	switch len(kinds) {
	case 0:
		return nil, invalidRule(path, "empty rule node")
	case 1:
	default:
		return nil, invalidRule(path, fmt.Sprintf("rule node sets more than one of %v", kinds))
	}

	switch {
	case node.All != nil, node.Any != nil:
		children, kind := node.All, "all"
		if node.Any != nil {
			children, kind = node.Any, "any"
		}

		if len(children) == 0 {
			return nil, invalidRule(path+"."+kind, "must have at least one child")
		}

		compiled := make([]Predicate, len(children))

		for i, child := range children {
			p, err := compileAt(child, fmt.Sprintf("%s.%s[%d]", path, kind, i), c)
			if err != nil {
				return nil, err
			}

			compiled[i] = p
		}

		if kind == "all" {
			return And(compiled), nil
		}

		return Or(compiled), nil

	case node.Not != nil:
		child, err := compileAt(*node.Not, path+".not", c)
		if err != nil {
			return nil, err
		}

		return Not{Child: child}, nil

	case node.Threshold != nil:
		path += ".threshold"

		left, err := c.operand(node.Threshold.OperandNode, path)
		if err != nil {
			return nil, err
		}

		op, err := comparison(node.Threshold.Op, path)
		if err != nil {
			return nil, err
		}

		return Threshold{Left: left, Op: op, Value: node.Threshold.Value}, nil

	case node.Compare != nil:
		path += ".compare"

		left, err := c.operand(node.Compare.Left, path+".left")
		if err != nil {
			return nil, err
		}

		right, err := c.operand(node.Compare.Right, path+".right")
		if err != nil {
			return nil, err
		}

		op, err := comparison(node.Compare.Op, path)
		if err != nil {
			return nil, err
		}

		return RelativeCompare{Left: left, Op: op, Right: right}, nil

	case node.Cross != nil:
		path += ".cross"

		left, err := c.operand(node.Cross.Left, path+".left")
		if err != nil {
			return nil, err
		}

		right, err := c.operand(node.Cross.Right, path+".right")
		if err != nil {
			return nil, err
		}

		direction := CrossDirection(node.Cross.Direction)
		if direction != CrossAbove && direction != CrossBelow {
			return nil, invalidRule(path+".direction", fmt.Sprintf("unknown cross direction %q", node.Cross.Direction))
		}

		return Crossover{Left: left, Right: right, Direction: direction}, nil

	case node.Shape != nil:
		path += ".shape"

		shape := Shape(node.Shape.Candle)
		if shape != ShapeGreen && shape != ShapeRed {
			return nil, invalidRule(path+".candle", fmt.Sprintf("unknown candle shape %q", node.Shape.Candle))
		}

		if err := checkShift(node.Shape.Shift, path); err != nil {
			return nil, err
		}

		return CandleShape{Shape: shape, Shift: node.Shape.Shift}, nil

	default:
		path += ".score"

		scorer, ok := c.scorers[node.Score.Model]
		if !ok {
			return nil, errors.NewConfig(errors.ErrCodeUnknownScorer, path+".model",
				fmt.Sprintf("no scorer registered for model %q", node.Score.Model))
		}

		op, err := comparison(node.Score.Op, path)
		if err != nil {
			return nil, err
		}

		return Score{Model: node.Score.Model, Scorer: scorer, Op: op, Value: node.Score.Value}, nil
	}
}

func (c *compiler) operand(node OperandNode, path string) (Operand, error) {
	if node.Column == "" {
		return Operand{}, invalidRule(path+".column", "column must be set")
	}

	if !indicator.IsRawField(node.Column) && !c.columns[node.Column] {
		return Operand{}, errors.NewConfig(errors.ErrCodeUnknownColumn, path+".column",
			fmt.Sprintf("column %s is not produced by the indicator pipeline", node.Column))
	}

	if err := checkShift(node.Shift, path); err != nil {
		return Operand{}, err
	}

	return Operand{Column: node.Column, Shift: node.Shift, Scale: node.Scale}, nil
}

func checkShift(shift int, path string) error {
	if shift < 0 || shift > MaxShift {
		return invalidRule(path+".shift", fmt.Sprintf("shift %d outside [0, %d]", shift, MaxShift))
	}

	return nil
}

func comparison(op, path string) (Comparison, error) {
	c := Comparison(op)
	if !c.Valid() {
		return "", invalidRule(path+".op", fmt.Sprintf("unknown operator %q", op))
	}

	return c, nil
}

func invalidRule(path, message string) error {
	return errors.NewConfig(errors.ErrCodeInvalidRule, path, message)
}

// Validate checks that every column p reads is a raw candle field or one of columns.
func Validate(p Predicate, columns []string) error {
	known := make(map[string]bool, len(columns))
	for _, column := range columns {
		known[column] = true
	}

	var missing []string

	for _, column := range p.Columns() {
		if !indicator.IsRawField(column) && !known[column] {
			missing = append(missing, column)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)

		return errors.NewConfig(errors.ErrCodeUnknownColumn, "columns", fmt.Sprintf("unknown columns %v", missing))
	}

	return nil
}
