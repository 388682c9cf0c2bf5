package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-rewards/internal/api/dto"
	"github.com/spec-kit/ticket-rewards/internal/service"
)

// TicketRequestsHandler serves the client request workflow.
type TicketRequestsHandler struct {
	service *service.TicketRequestService
	now     func() time.Time
}

// NewTicketRequestsHandler constructs handler.
func NewTicketRequestsHandler(requests *service.TicketRequestService, clock func() time.Time) *TicketRequestsHandler {
	if clock == nil {
		clock = time.Now
	}
	return &TicketRequestsHandler{service: requests, now: clock}
}

// Submit POST /ticket-requests.
func (h *TicketRequestsHandler) Submit(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.SubmitTicketRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.service.Submit(c.UserContext(), actor, service.SubmitRequestInput{
		ProjectID:   req.ProjectID,
		StageID:     req.StageID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketRequestResponse(created)})
}

// List GET /ticket-requests.
func (h *TicketRequestsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	page := parsePage(c)
	requests, err := h.service.List(c.UserContext(), actor, service.ListRequestsInput{
		Status:    c.Query("status"),
		ProjectID: optionalQuery(c, "project_id"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, ticketRequestResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /ticket-requests/:id.
func (h *TicketRequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	req, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketRequestResponse(req)})
}

// Approve POST /ticket-requests/:id/approve.
func (h *TicketRequestsHandler) Approve(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ApproveTicketRequestRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	result, err := h.service.Approve(c.UserContext(), actor, c.Params("id"), service.ApproveRequestInput{
		AssigneeID:     req.AssigneeID,
		EstimatedHours: req.EstimatedHours,
		Deadline:       req.Deadline,
		RewardPoints:   req.RewardPoints,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ApprovalResponse{
		Request: ticketRequestResponse(result.Request),
		Ticket:  ticketResponse(result.Ticket, h.now()),
	}})
}

// Reject POST /ticket-requests/:id/reject.
func (h *TicketRequestsHandler) Reject(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.RejectTicketRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rejected, err := h.service.Reject(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketRequestResponse(rejected)})
}

// Stats GET /ticket-requests/stats.
func (h *TicketRequestsHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketRequestStatsResponse{
		Pending:  stats.Pending,
		Approved: stats.Approved,
		Rejected: stats.Rejected,
		Total:    stats.Total,
	}})
}
