package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// statusAliases maps the legacy field values onto canonical statuses.
var statusAliases = map[string]TicketStatus{
	"abierto":     TicketStatusOpen,
	"en_progreso": TicketStatusInProgress,
	"resuelto":    TicketStatusResolved,
	"cerrado":     TicketStatusClosed,
}

// StatusSet declares which statuses exist and which moves between them are
// permitted. A nil Transitions map leaves moves unconstrained.
type StatusSet struct {
	Statuses    []TicketStatus
	Initial     TicketStatus
	Transitions map[TicketStatus][]TicketStatus
}

// StandardStatusSet is open, in_progress, resolved, closed.
func StandardStatusSet() StatusSet {
	return StatusSet{
		Statuses: []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
		Initial:  TicketStatusOpen,
	}
}

// LegacyStatusSet is the reduced three-state variant without resolved.
func LegacyStatusSet() StatusSet {
	return StatusSet{
		Statuses: []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed},
		Initial:  TicketStatusOpen,
	}
}

// Contains reports whether status is declared in the set.
func (s StatusSet) Contains(status TicketStatus) bool {
	for _, candidate := range s.Statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// Normalize resolves aliases and checks membership.
func (s StatusSet) Normalize(raw string) (TicketStatus, error) {
	raw = strings.TrimSpace(raw)
	status := TicketStatus(raw)
	if alias, ok := statusAliases[raw]; ok {
		status = alias
	}
	if !s.Contains(status) {
		return "", fmt.Errorf("invalid status %q", raw)
	}
	return status, nil
}

// CanTransition reports whether a ticket may move from current to next.
// Re-applying the current status is always permitted.
func (s StatusSet) CanTransition(current, next TicketStatus) bool {
	if !s.Contains(next) {
		return false
	}
	if s.Transitions == nil || current == next {
		return true
	}
	for _, candidate := range s.Transitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// WithTransitions parses a declaration such as
// "open:in_progress|closed;in_progress:resolved|closed" and returns a copy of s
// constrained to it. An empty declaration returns s unchanged.
func (s StatusSet) WithTransitions(decl string) (StatusSet, error) {
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return s, nil
	}
	transitions := make(map[TicketStatus][]TicketStatus)
	for _, rule := range strings.Split(decl, ";") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		from, targets, ok := strings.Cut(rule, ":")
		if !ok {
			return StatusSet{}, fmt.Errorf("transition rule %q: missing ':'", rule)
		}
		fromStatus, err := s.Normalize(from)
		if err != nil {
			return StatusSet{}, fmt.Errorf("transition rule %q: %w", rule, err)
		}
		if _, exists := transitions[fromStatus]; !exists {
			transitions[fromStatus] = []TicketStatus{}
		}
		for _, target := range strings.Split(targets, "|") {
			if strings.TrimSpace(target) == "" {
				continue
			}
			toStatus, err := s.Normalize(target)
			if err != nil {
				return StatusSet{}, fmt.Errorf("transition rule %q: %w", rule, err)
			}
			transitions[fromStatus] = append(transitions[fromStatus], toStatus)
		}
	}
	s.Transitions = transitions
	return s, nil
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              string
	Title           string
	Description     string
	Status          TicketStatus
	CreatorID       string
	AssignedAdminID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Creator       *UserSummary
	AssignedAdmin *UserSummary
}

// TicketDetail is a ticket with its full ordered activity and history.
type TicketDetail struct {
	Ticket   Ticket
	Activity []ActivityEntry
	History  []TicketHistory
}
