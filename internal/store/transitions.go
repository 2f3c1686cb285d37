package store

import (
	"fmt"

	"github.com/miradorstack/opsboard/internal/utils"
)

// InvalidTransitionMessage is recorded when a status change is rejected locally.
const InvalidTransitionMessage = "Invalid status transition"

// Transitions is a directed graph of allowed status changes.
type Transitions[S comparable] map[S][]S

// Allowed reports whether from -> to is an edge.
func (t Transitions[S]) Allowed(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns a validation error for a missing edge.
func (t Transitions[S]) Validate(from, to S) error {
	if t.Allowed(from, to) {
		return nil
	}
	return utils.NewAppError("transition", InvalidTransitionMessage,
		fmt.Errorf("%w: %v -> %v", utils.ErrValidation, from, to))
}

// Terminal reports whether s has no outgoing edges.
func (t Transitions[S]) Terminal(s S) bool {
	return len(t[s]) == 0
}
