package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestCreateTicketDefaults(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)

	ticket := f.ticket(t, ana, "Printer down")
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, ana.ID, ticket.CreatorID)
	assert.Nil(t, ticket.AssignedAdminID)
	require.NotNil(t, ticket.Creator)
	assert.Equal(t, "Ana", ticket.Creator.Name)

	require.NotEmpty(t, f.published)
	assert.Equal(t, events.EventTicketCreated, f.published[0].Type)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)

	_, err := f.tickets.Create(ctx, ana, TicketCreateInput{Title: "  ", Description: "x"})
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))

	_, err = f.tickets.Create(ctx, ana, TicketCreateInput{Title: "t", Description: "d", AssignedAdminID: &admin.ID})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	ticket, err := f.tickets.Create(ctx, admin, TicketCreateInput{Title: "t", Description: "d", AssignedAdminID: &admin.ID})
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedAdmin)
	assert.Equal(t, admin.ID, ticket.AssignedAdmin.ID)

	_, err = f.tickets.Create(ctx, admin, TicketCreateInput{Title: "t", Description: "d", AssignedAdminID: &ana.ID})
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))
}

func TestGestorListsOnlyOwnTickets(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	bo := f.register(t, "Bo", "b@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)

	empty, err := f.tickets.List(ctx, ana, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	f.ticket(t, ana, "a1")
	f.ticket(t, ana, "a2")
	f.ticket(t, bo, "b1")

	mine, err := f.tickets.List(ctx, ana, TicketListFilter{CreatorID: &bo.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, ticket := range mine {
		assert.Equal(t, ana.ID, ticket.CreatorID)
	}
	assert.Equal(t, "a2", mine[0].Title, "newest first")

	all, err := f.tickets.List(ctx, admin, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byBo, err := f.tickets.List(ctx, admin, TicketListFilter{CreatorID: &bo.ID})
	require.NoError(t, err)
	require.Len(t, byBo, 1)
	assert.Equal(t, "b1", byBo[0].Title)
}

func TestAdminListFilters(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	first := f.ticket(t, ana, "one")
	f.ticket(t, ana, "two")

	_, err := f.tickets.Update(ctx, admin, first.ID, TicketUpdateInput{
		Status:          strPtr("en_progreso"),
		AssignedAdminID: &admin.ID,
	})
	require.NoError(t, err)

	inProgress, err := f.tickets.List(ctx, admin, TicketListFilter{Status: strPtr("in_progress")})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, first.ID, inProgress[0].ID)

	assigned, err := f.tickets.List(ctx, admin, TicketListFilter{AssignedAdminID: &admin.ID})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	_, err = f.tickets.List(ctx, admin, TicketListFilter{Status: strPtr("pending")})
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))
}

func TestStatusChangeIsAdminOnly(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	ticket := f.ticket(t, ana, "Printer down")

	updated, err := f.tickets.ChangeStatus(ctx, admin, ticket.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, ana.ID, updated.CreatorID)

	_, err = f.tickets.ChangeStatus(ctx, ana, ticket.ID, "closed")
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = f.tickets.ChangeStatus(ctx, admin, ticket.ID, "archived")
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))

	_, err = f.tickets.ChangeStatus(ctx, admin, "missing", "closed")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	detail, err := f.tickets.Detail(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 1)
	assert.Equal(t, domain.ChangeTypeStatus, detail.History[0].ChangeType)
}

func TestUnconstrainedStatusMoves(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	ticket := f.ticket(t, ana, "t")

	for _, status := range []string{"closed", "open", "resolved", "in_progress"} {
		updated, err := f.tickets.ChangeStatus(ctx, admin, ticket.ID, status)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatus(status), updated.Status)
	}
}

func TestDeclaredTransitionsAreEnforced(t *testing.T) {
	statuses, err := domain.StandardStatusSet().WithTransitions("open:in_progress;in_progress:resolved;resolved:closed")
	require.NoError(t, err)
	f := newFixture(t, statuses)
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	ticket := f.ticket(t, ana, "t")

	_, err = f.tickets.ChangeStatus(ctx, admin, ticket.ID, "closed")
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))

	_, err = f.tickets.ChangeStatus(ctx, admin, ticket.ID, "in_progress")
	assert.NoError(t, err)
}

func TestLegacyStatusSetRejectsResolved(t *testing.T) {
	f := newFixture(t, domain.LegacyStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	ticket := f.ticket(t, ana, "t")

	_, err := f.tickets.ChangeStatus(ctx, admin, ticket.ID, "resolved")
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))
	updated, err := f.tickets.ChangeStatus(ctx, admin, ticket.ID, "cerrado")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
}

func TestAssignRequiresAdminAssignee(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	other := f.register(t, "Other", "o@x.com", domain.RoleAdmin)
	ticket := f.ticket(t, ana, "t")

	updated, err := f.tickets.Assign(ctx, admin, ticket.ID, other.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedAdminID)
	assert.Equal(t, other.ID, *updated.AssignedAdminID)

	_, err = f.tickets.Assign(ctx, admin, ticket.ID, ana.ID)
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))

	_, err = f.tickets.Assign(ctx, admin, ticket.ID, "no-such-user")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = f.tickets.Assign(ctx, admin, ticket.ID, "")
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))

	_, err = f.tickets.Assign(ctx, ana, ticket.ID, admin.ID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	detail, err := f.tickets.Detail(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Ticket.AssignedAdminID)
	assert.Equal(t, other.ID, *detail.Ticket.AssignedAdminID, "failed assignments leave the assignee unchanged")
}

func TestCombinedUpdateValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	ticket := f.ticket(t, ana, "t")

	_, err := f.tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{Status: strPtr("closed"), AssignedAdminID: &ana.ID})
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))

	detail, err := f.tickets.Detail(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, detail.Ticket.Status)

	_, err = f.tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{})
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))
}

// vanishingUsers deletes the looked-up user right after returning it.
type vanishingUsers struct {
	repository.UserRepository
}

func (v vanishingUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := v.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := v.UserRepository.Delete(ctx, id); err != nil {
		return nil, err
	}
	return user, nil
}

func TestUpdateWithAssigneeDeletedMidRequest(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	leaving := f.register(t, "Leaving", "l@x.com", domain.RoleAdmin)
	ticket := f.ticket(t, ana, "t")

	tickets := NewTicketService(TicketDependencies{
		TicketRepo:   f.store.Tickets(),
		ActivityRepo: f.store.Activity(),
		HistoryRepo:  f.store.History(),
		UserRepo:     vanishingUsers{f.store.Users()},
		Statuses:     domain.StandardStatusSet(),
	})

	_, err := tickets.Update(ctx, admin, ticket.ID, TicketUpdateInput{Status: strPtr("closed"), AssignedAdminID: &leaving.ID})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	detail, err := f.tickets.Detail(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, detail.Ticket.Status)
	assert.Nil(t, detail.Ticket.AssignedAdminID)
	assert.Empty(t, detail.History)
}

func TestDetailAndComments(t *testing.T) {
	f := newFixture(t, domain.StandardStatusSet())
	ctx := context.Background()
	ana := f.register(t, "Ana", "a@x.com", domain.RoleGestor)
	bo := f.register(t, "Bo", "b@x.com", domain.RoleGestor)
	admin := f.register(t, "Root", "root@x.com", domain.RoleAdmin)
	ticket := f.ticket(t, ana, "t")

	_, err := f.tickets.Detail(ctx, bo, ticket.ID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	_, err = f.tickets.Comment(ctx, bo, ticket.ID, "hi")
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	_, err = f.tickets.Comment(ctx, ana, ticket.ID, "   ")
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))
	_, err = f.tickets.Detail(ctx, ana, "missing")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	previous := 0
	for i, author := range []*domain.User{ana, admin, ana} {
		entry, err := f.tickets.Comment(ctx, author, ticket.ID, "message")
		require.NoError(t, err)
		require.NotNil(t, entry.Author)
		assert.Equal(t, author.ID, entry.Author.ID)

		detail, err := f.tickets.Detail(ctx, ana, ticket.ID)
		require.NoError(t, err)
		assert.Len(t, detail.Activity, i+1)
		assert.Greater(t, len(detail.Activity), previous)
		previous = len(detail.Activity)
		for j := 1; j < len(detail.Activity); j++ {
			assert.False(t, detail.Activity[j].CreatedAt.Before(detail.Activity[j-1].CreatedAt))
		}
	}

	detail, err := f.tickets.Detail(ctx, ana, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, detail.Ticket.Status, "comments never change status")
	assert.Equal(t, admin.ID, detail.Activity[1].AuthorID)
}

func strPtr(s string) *string { return &s }
