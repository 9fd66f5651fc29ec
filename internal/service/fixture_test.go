package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

type fixture struct {
	store      *memory.Store
	auth       *AuthService
	users      *UserService
	tickets    *TicketService
	dispatcher events.Dispatcher
	published  []events.Event
}

func newFixture(t *testing.T, statuses domain.StatusSet) *fixture {
	t.Helper()
	store := memory.NewStore()
	hasher := auth.NewBcryptHasher(4)
	f := &fixture{store: store, dispatcher: events.NewInMemoryDispatcher()}
	for _, eventType := range events.AllTypes {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}
	f.auth = NewAuthService(AuthDependencies{
		UserRepo:    store.Users(),
		SessionRepo: store.Sessions(),
		Hasher:      hasher,
	})
	f.users = NewUserService(store.Users(), store.Tickets(), hasher, nil)
	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:   store.Tickets(),
		ActivityRepo: store.Activity(),
		HistoryRepo:  store.History(),
		UserRepo:     store.Users(),
		Statuses:     statuses,
		Dispatcher:   f.dispatcher,
	})
	return f
}

func (f *fixture) register(t *testing.T, name, email string, role domain.Role) *domain.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: "pw",
		Role:     string(role),
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) ticket(t *testing.T, actor *domain.User, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), actor, TicketCreateInput{Title: title, Description: "details"})
	require.NoError(t, err)
	return ticket
}
