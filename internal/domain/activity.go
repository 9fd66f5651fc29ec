package domain

import "time"

// ActivityEntry is an append-only comment on a ticket.
type ActivityEntry struct {
	ID        string
	TicketID  string
	AuthorID  string
	Message   string
	CreatedAt time.Time
	Author    *UserSummary
}
