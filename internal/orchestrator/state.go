package orchestrator

import "fmt"

// State is a step of the per-page state machine:
//
//	Classifying -> NoOp
//	Classifying -> DeterministicSync -> Validating -> Accepted | Aborted
//	Classifying -> ExternalTranslate -> Validating -> Accepted
//	                                              -> RetryStricter -> ExternalTranslate -> Validating -> Accepted | Aborted
type State int

const (
	Classifying State = iota
	NoOp
	DeterministicSync
	ExternalTranslate
	Validating
	RetryStricter
	Accepted
	Aborted
)

var stateNames = [...]string{
	Classifying:       "classifying",
	NoOp:              "noop",
	DeterministicSync: "deterministic-sync",
	ExternalTranslate: "external-translate",
	Validating:        "validating",
	RetryStricter:     "retry-stricter",
	Accepted:          "accepted",
	Aborted:           "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether processing of a page ends in s.
func (s State) Terminal() bool {
	return s == NoOp || s == Accepted || s == Aborted
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Strategy is how a page's secondary is brought up to date.
type Strategy int

const (
	// StrategyNone leaves the secondary untouched.
	StrategyNone Strategy = iota
	// StrategyStructure copies heading and list markers.
	StrategyStructure
	// StrategyLiteral copies delimited blocks verbatim.
	StrategyLiteral
	// StrategyTranslate regenerates the secondary with the translator.
	StrategyTranslate
)

var strategyNames = [...]string{
	StrategyNone:      "none",
	StrategyStructure: "structure",
	StrategyLiteral:   "literal",
	StrategyTranslate: "translate",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
