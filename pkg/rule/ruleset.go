package rule

import (
	"github.com/rxtech-lab/argo-signal/pkg/indicator"
)

// RuleSet is a named pair of independent entry and exit conditions.
// Deciding what happens when both hold on the same candle is up to the caller.
type RuleSet struct {
	Name  string
	Entry Predicate
	// Exit may be nil for strategies that only leave through the exit state machine.
	Exit Predicate
}

// Signals holds the per-candle flags of a RuleSet, aligned with the frame.
type Signals struct {
	Enter []bool
	Exit  []bool
}

// CompileRuleSet compiles the entry and exit trees of a strategy. An empty exit node
// yields a RuleSet without exit condition.
func CompileRuleSet(name string, entry, exit Node, opts CompileOptions) (*RuleSet, error) {
	c := newCompiler(opts)

	entryPredicate, err := compileAt(entry, "entry", c)
	if err != nil {
		return nil, err
	}

	var exitPredicate Predicate

	if !exit.IsZero() {
		exitPredicate, err = compileAt(exit, "exit", c)
		if err != nil {
			return nil, err
		}
	}

	return &RuleSet{Name: name, Entry: entryPredicate, Exit: exitPredicate}, nil
}

// Lookback returns how many candles before the evaluated one either condition reads.
func (r *RuleSet) Lookback() int {
	lookback := 0
	if r.Entry != nil {
		lookback = r.Entry.Lookback()
	}

	if r.Exit != nil {
		lookback = max(lookback, r.Exit.Lookback())
	}

	return lookback
}

// EvaluateAt evaluates both conditions at index i.
func (r *RuleSet) EvaluateAt(f *indicator.Frame, i int) (enter, exit bool) {
	if r.Entry != nil {
		enter = r.Entry.Eval(f, i)
	}

	if r.Exit != nil {
		exit = r.Exit.Eval(f, i)
	}

	return enter, exit
}

// Evaluate computes the flags for every candle of f. Candles before startup never signal.
func (r *RuleSet) Evaluate(f *indicator.Frame, startup int) Signals {
	n := f.Len()
	signals := Signals{
		Enter: make([]bool, n),
		Exit:  make([]bool, n),
	}

	for i := max(startup, 0); i < n; i++ {
		signals.Enter[i], signals.Exit[i] = r.EvaluateAt(f, i)
	}

	return signals
}
