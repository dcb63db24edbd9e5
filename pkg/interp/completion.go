package interp

import "sandbox5/pkg/value"

// CompletionType is one of the five statement completion kinds
// (normal, break, continue, return, throw).
type CompletionType uint8

const (
	Normal CompletionType = iota
	Break
	Continue
	Return
	ThrowCompletion
)

// Completion is the control-flow effect value statement evaluation
// produces, consumed by the unwind algorithm. A Normal
// completion's Value, when present, is the value of the last completed
// expression statement — this is how Program surfaces `.value` to the
// host facade without a separate side channel.
type Completion struct {
	Type  CompletionType
	Value value.Value
	Label string
	Throw *value.Throw
}

func normal(v value.Value) Completion { return Completion{Type: Normal, Value: v} }

var normalUndefined = Completion{Type: Normal, Value: value.Undefined}

func breakCompletion(label string) Completion { return Completion{Type: Break, Label: label} }

func continueCompletion(label string) Completion { return Completion{Type: Continue, Label: label} }

func returnCompletion(v value.Value) Completion { return Completion{Type: Return, Value: v} }

func throwCompletion(t *value.Throw) Completion { return Completion{Type: ThrowCompletion, Throw: t} }

func (c Completion) isAbrupt() bool { return c.Type != Normal }
