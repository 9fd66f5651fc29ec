// Package memory provides in-process implementations of the repository
// interfaces. They mirror the foreign-key behaviour of the Postgres schema and
// back the test suites and single-binary runs without POSTGRES_DSN.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store holds every table behind one lock.
type Store struct {
	mu       sync.RWMutex
	seq      int64
	now      func() time.Time
	users    map[string]*domain.User
	sessions map[string]*domain.Session
	tickets  map[string]*ticketRow
	activity map[string][]activityRow
	history  map[string][]domain.TicketHistory
}

type ticketRow struct {
	ticket domain.Ticket
	seq    int64
}

type activityRow struct {
	entry domain.ActivityEntry
	seq   int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[string]*domain.User),
		sessions: make(map[string]*domain.Session),
		tickets:  make(map[string]*ticketRow),
		activity: make(map[string][]activityRow),
		history:  make(map[string][]domain.TicketHistory),
	}
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Sessions returns the session repository view.
func (s *Store) Sessions() repository.SessionRepository { return (*sessionRepo)(s) }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return (*ticketRepo)(s) }

// Activity returns the activity repository view.
func (s *Store) Activity() repository.ActivityRepository { return (*activityRepo)(s) }

// History returns the ticket history repository view.
func (s *Store) History() repository.TicketHistoryRepository { return (*historyRepo)(s) }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) summary(id string) *domain.UserSummary {
	user, ok := s.users[id]
	if !ok {
		return nil
	}
	summary := user.Summary()
	return &summary
}

func (s *Store) emailTaken(email, exceptID string) bool {
	for id, user := range s.users {
		if id != exceptID && user.Email == email {
			return true
		}
	}
	return false
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(user.Email, "") {
		return repository.ErrEmailTaken
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if s.emailTaken(user.Email, user.ID) {
		return repository.ErrEmailTaken
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = s.now()
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, row := range s.tickets {
		if row.ticket.CreatorID == id {
			return repository.ErrStillReferenced
		}
	}
	for _, rows := range s.activity {
		for _, row := range rows {
			if row.entry.AuthorID == id {
				return repository.ErrStillReferenced
			}
		}
	}

	delete(s.users, id)
	for token, session := range s.sessions {
		if session.UserID == id {
			delete(s.sessions, token)
		}
	}
	for _, row := range s.tickets {
		if row.ticket.AssignedAdminID != nil && *row.ticket.AssignedAdminID == id {
			row.ticket.AssignedAdminID = nil
		}
	}
	for ticketID, entries := range s.history {
		for i := range entries {
			if entries[i].ChangedByID != nil && *entries[i].ChangedByID == id {
				s.history[ticketID][i].ChangedByID = nil
			}
		}
	}
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, *user)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type sessionRepo Store

func (r *sessionRepo) Create(_ context.Context, session *domain.Session) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[session.UserID]; !ok {
		return repository.ErrStillReferenced
	}
	session.CreatedAt = s.now()
	stored := *session
	s.sessions[session.Token] = &stored
	return nil
}

func (r *sessionRepo) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *session
	return &out, nil
}

func (r *sessionRepo) DeleteByToken(_ context.Context, token string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

func (r *sessionRepo) DeleteByUser(_ context.Context, userID string) ([]string, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	var tokens []string
	for token, session := range s.sessions {
		if session.UserID == userID {
			tokens = append(tokens, token)
			delete(s.sessions, token)
		}
	}
	return tokens, nil
}

type ticketRepo Store

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ticket.CreatorID]; !ok {
		return repository.ErrStillReferenced
	}
	if ticket.AssignedAdminID != nil {
		if _, ok := s.users[*ticket.AssignedAdminID]; !ok {
			return repository.ErrStillReferenced
		}
	}
	now := s.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	row := &ticketRow{ticket: *ticket, seq: s.nextSeq()}
	row.ticket.AssignedAdminID = cloneID(ticket.AssignedAdminID)
	row.ticket.Creator = nil
	row.ticket.AssignedAdmin = nil
	s.tickets[ticket.ID] = row
	return nil
}

func (r *ticketRepo) UpdateStatus(_ context.Context, ticket *domain.Ticket) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.ticket.Status = ticket.Status
	row.ticket.UpdatedAt = s.now()
	ticket.UpdatedAt = row.ticket.UpdatedAt
	return nil
}

func (r *ticketRepo) UpdateAssignment(_ context.Context, ticket *domain.Ticket) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if ticket.AssignedAdminID != nil {
		if _, ok := s.users[*ticket.AssignedAdminID]; !ok {
			return repository.ErrStillReferenced
		}
	}
	row.ticket.AssignedAdminID = cloneID(ticket.AssignedAdminID)
	row.ticket.UpdatedAt = s.now()
	ticket.UpdatedAt = row.ticket.UpdatedAt
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket := s.hydrate(row)
	return &ticket, nil
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]*ticketRow, 0, len(s.tickets))
	for _, row := range s.tickets {
		t := row.ticket
		if filter.CreatorID != nil && t.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.AssignedAdminID != nil && (t.AssignedAdminID == nil || *t.AssignedAdminID != *filter.AssignedAdminID) {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ticket.CreatedAt.Equal(rows[j].ticket.CreatedAt) {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].ticket.CreatedAt.After(rows[j].ticket.CreatedAt)
	})

	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset > len(rows) {
			offset = len(rows)
		}
		end := offset + filter.Limit
		if end > len(rows) {
			end = len(rows)
		}
		rows = rows[offset:end]
	}

	result := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		result = append(result, s.hydrate(row))
	}
	return result, nil
}

func (s *Store) hydrate(row *ticketRow) domain.Ticket {
	ticket := row.ticket
	ticket.AssignedAdminID = cloneID(row.ticket.AssignedAdminID)
	ticket.Creator = s.summary(ticket.CreatorID)
	if ticket.AssignedAdminID != nil {
		ticket.AssignedAdmin = s.summary(*ticket.AssignedAdminID)
	}
	return ticket
}

type activityRepo Store

func (r *activityRepo) Create(_ context.Context, entry *domain.ActivityEntry) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[entry.TicketID]; !ok {
		return repository.ErrStillReferenced
	}
	if _, ok := s.users[entry.AuthorID]; !ok {
		return repository.ErrStillReferenced
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now()
	stored := *entry
	stored.Author = nil
	s.activity[entry.TicketID] = append(s.activity[entry.TicketID], activityRow{entry: stored, seq: s.nextSeq()})
	return nil
}

func (r *activityRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := append([]activityRow(nil), s.activity[ticketID]...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].entry.CreatedAt.Equal(rows[j].entry.CreatedAt) {
			return rows[i].seq < rows[j].seq
		}
		return rows[i].entry.CreatedAt.Before(rows[j].entry.CreatedAt)
	})

	result := make([]domain.ActivityEntry, 0, len(rows))
	for _, row := range rows {
		entry := row.entry
		entry.Author = s.summary(entry.AuthorID)
		result = append(result, entry)
	}
	return result, nil
}

type historyRepo Store

func (r *historyRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[history.TicketID]; !ok {
		return repository.ErrStillReferenced
	}
	history.ID = uuid.NewString()
	history.CreatedAt = s.now()
	stored := *history
	stored.ChangedByID = cloneID(history.ChangedByID)
	s.history[history.TicketID] = append(s.history[history.TicketID], stored)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TicketHistory, 0, len(s.history[ticketID]))
	for _, entry := range s.history[ticketID] {
		entry.ChangedByID = cloneID(entry.ChangedByID)
		result = append(result, entry)
	}
	return result, nil
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}
