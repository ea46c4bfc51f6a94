// Package domain provides the contact (lead) model and its pipeline rules.
package domain

// Status is a stage of the sales pipeline.
type Status string

const (
	StatusNew         Status = "New"
	StatusContacted   Status = "Contacted"
	StatusQualified   Status = "Qualified"
	StatusNegotiation Status = "Negotiation"
	StatusWon         Status = "Won"
	StatusLost        Status = "Lost"
)

// Pipeline lists the forward stages in funnel order. Lost sits outside it.
var Pipeline = []Status{StatusNew, StatusContacted, StatusQualified, StatusNegotiation, StatusWon}

var knownStatuses = map[Status]struct{}{
	StatusNew:         {},
	StatusContacted:   {},
	StatusQualified:   {},
	StatusNegotiation: {},
	StatusWon:         {},
	StatusLost:        {},
}

// IsKnown reports whether s is a pipeline status.
func (s Status) IsKnown() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminal reports whether no further moves are possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

// IsOpen reports whether a contact in status s counts toward its owner's load.
func (s Status) IsOpen() bool {
	return s.IsKnown() && !s.IsTerminal()
}

// CanMove reports whether the stage graph has an edge from -> to.
// Non-terminal stages may move to any other stage (the board allows
// dragging backwards); terminal stages have no outgoing edges.
func CanMove(from, to Status) bool {
	if !from.IsKnown() || !to.IsKnown() {
		return false
	}
	if from == to || from.IsTerminal() {
		return false
	}
	return true
}
