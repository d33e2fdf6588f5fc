// Package history converts between the flat wire history format and
// structured conversation turns.
//
// The wire format is an ordered list alternating question, answer,
// question, answer. It exists only at the API boundary; everything past
// the boundary operates on Turns.
package history

// Turn is one completed question/answer exchange. Immutable once created.
type Turn struct {
	Question string
	Answer   string
}

// FromWire consumes a flat [q1, a1, q2, a2, ...] list pairwise. A trailing
// unpaired element is discarded; an incomplete turn is never produced.
func FromWire(wire []string) []Turn {
	if len(wire) < 2 {
		return nil
	}
	turns := make([]Turn, 0, len(wire)/2)
	for i := 0; i+1 < len(wire); i += 2 {
		turns = append(turns, Turn{Question: wire[i], Answer: wire[i+1]})
	}
	return turns
}

// ToWire flattens turns to [q1, a1, q2, a2, ...] in chronological order.
func ToWire(turns []Turn) []string {
	wire := make([]string, 0, len(turns)*2)
	for _, t := range turns {
		wire = append(wire, t.Question, t.Answer)
	}
	return wire
}

// Append adds exactly one complete turn at the end and returns the
// extended session. Existing turns are never mutated.
func Append(turns []Turn, question, answer string) []Turn {
	out := make([]Turn, len(turns), len(turns)+1)
	copy(out, turns)
	return append(out, Turn{Question: question, Answer: answer})
}
