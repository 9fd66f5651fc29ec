package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const maxPageSize = 100

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:           req.TitleValue(),
		Description:     req.DescriptionValue(),
		AssignedAdminID: req.Assignee(),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "ticket": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "tickets": dto.NewTicketListResponse(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Detail(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "ticket": dto.NewTicketDetailResponse(detail)})
}

// UpdateStatus PUT /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Value())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "ticket": dto.NewTicketResponse(ticket)})
}

// Assign PUT /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Assign(c.UserContext(), actor, c.Params("id"), req.Value())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "ticket": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Update(c.UserContext(), actor, c.Params("id"), service.TicketUpdateInput{
		Status:          req.StatusValue(),
		AssignedAdminID: req.AssigneeValue(),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "ticket": dto.NewTicketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.service.Comment(c.UserContext(), actor, c.Params("id"), req.Value())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "comment": dto.NewActivityResponse(entry)})
}

// parseTicketQuery reads filters under either naming. Pagination applies only
// when page or page_size is given.
func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{
		Status:          queryEither(c, "status", "estado"),
		CreatorID:       queryEither(c, "creator_id", "gestor_id"),
		AssignedAdminID: queryEither(c, "assigned_admin_id", "admin_id"),
	}
	if c.Query("page") == "" && c.Query("page_size") == "" {
		return filter, nil
	}
	page, err := parsePositiveInt(c.Query("page"), 1)
	if err != nil {
		return filter, apperrors.NewValidationError("page must be a positive integer", nil)
	}
	pageSize, err := parsePositiveInt(c.Query("page_size"), 20)
	if err != nil {
		return filter, apperrors.NewValidationError("page_size must be a positive integer", nil)
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	return filter, nil
}

func queryEither(c *fiber.Ctx, keys ...string) *string {
	for _, key := range keys {
		if val := c.Query(key); val != "" {
			return &val
		}
	}
	return nil
}

func parsePositiveInt(val string, def int) (int, error) {
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, strconv.ErrRange
	}
	return parsed, nil
}
