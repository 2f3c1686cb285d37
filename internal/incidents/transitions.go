package incidents

import "github.com/miradorstack/opsboard/internal/store"

// Transitions lists the allowed status changes. Closed is terminal.
var Transitions = store.Transitions[Status]{
	StatusOpen:          {StatusInvestigating, StatusMitigated, StatusResolved},
	StatusInvestigating: {StatusMitigated, StatusResolved},
	StatusMitigated:     {StatusResolved, StatusClosed},
	StatusResolved:      {StatusClosed},
	StatusClosed:        {},
}
