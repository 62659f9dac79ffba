// Package workflow drives the ordered filing conversation. The transition
// table is the single mechanism preventing step-skipping: any event without
// a declared edge from the current state is rejected and the state is left
// untouched.
package workflow

// State names one stage of the filing conversation.
type State string

const (
	StateEntry               State = "entry"
	StateIdentityRequested   State = "identity_requested"
	StateAwaitingChallenge   State = "awaiting_challenge_response"
	StateIdentityVerified    State = "identity_verified"
	StateTypeSelected        State = "type_selected"
	StatePeriodSelected      State = "period_selected"
	StateSubmissionIssued    State = "submission_issued"
	StateConfirmationPending State = "confirmation_pending"
	StateCompleted           State = "completed"
)

// Event names a trigger accepted by the machine.
type Event string

const (
	EventStart             Event = "start"
	EventIdentityValid     Event = "identity_valid"
	EventVerified          Event = "verified"
	EventRejected          Event = "rejected"
	EventExpired           Event = "expired"
	EventTypeChosen        Event = "type_chosen"
	EventPeriodChosen      Event = "period_chosen"
	EventLinkGenerated     Event = "link_generated"
	EventUserConfirmedSent Event = "user_confirmed_sent"
	EventOutcomeReported   Event = "outcome_reported"
)

// transitions is the complete state × event table. A rejected or expired
// challenge rolls back to identity_requested: the consumed session cannot be
// retried, so the user re-enters from identity presentation.
var transitions = map[State]map[Event]State{
	StateEntry: {
		EventStart: StateIdentityRequested,
	},
	StateIdentityRequested: {
		EventIdentityValid: StateAwaitingChallenge,
	},
	StateAwaitingChallenge: {
		EventVerified: StateIdentityVerified,
		EventRejected: StateIdentityRequested,
		EventExpired:  StateIdentityRequested,
	},
	StateIdentityVerified: {
		EventTypeChosen: StateTypeSelected,
	},
	StateTypeSelected: {
		EventPeriodChosen: StatePeriodSelected,
	},
	StatePeriodSelected: {
		EventLinkGenerated: StateSubmissionIssued,
	},
	StateSubmissionIssued: {
		EventUserConfirmedSent: StateConfirmationPending,
	},
	StateConfirmationPending: {
		EventOutcomeReported: StateCompleted,
	},
	StateCompleted: {},
}

// Next returns the destination for an event from a state, if one is
// declared.
func Next(from State, ev Event) (State, bool) {
	next, ok := transitions[from][ev]
	return next, ok
}

// Terminal reports whether the state has no outgoing edges.
func Terminal(s State) bool {
	return len(transitions[s]) == 0
}
