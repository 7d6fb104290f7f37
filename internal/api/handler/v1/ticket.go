package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rifahub/raffle-api/internal/api/handler/v1/request"
	"github.com/rifahub/raffle-api/internal/api/handler/v1/response"
	"github.com/rifahub/raffle-api/internal/domain"
	"github.com/rifahub/raffle-api/internal/service"
)

// sessionHeader carries the visitor's opaque session ID; selections are
// scoped to it.
const sessionHeader = "X-Session-ID"

var errMissingSession = errors.New("missing " + sessionHeader + " header")

type RaffleService interface {
	Raffle() domain.RaffleInfo
	ListTickets(ctx context.Context) ([]domain.Ticket, domain.TicketStats, error)
	ToggleSelection(ctx context.Context, sessionID, number string) ([]string, error)
	Selection(sessionID string) []string
	ClearSelection(sessionID string)
	Checkout(ctx context.Context, sessionID string, buyer domain.BuyerInfo) (domain.ReservationResult, error)
}

type TicketHandler struct {
	svc RaffleService
}

func NewTicketHandler(svc RaffleService) *TicketHandler {
	return &TicketHandler{
		svc: svc,
	}
}

// HandleGetRaffle godoc
// @Summary      Get the static raffle information
// @Tags         raffle
// @Produce      json
// @Success      200      {object}   domain.RaffleInfo
// @Router       /raffle [get]
func (h *TicketHandler) HandleGetRaffle(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.svc.Raffle())
}

// HandleListTickets godoc
// @Summary      List all tickets with derived counts
// @Tags         raffle
// @Produce      json
// @Success      200      {object}   response.ListTicketsResponse
// @Failure      500      {object}   response.Err
// @Router       /tickets [get]
func (h *TicketHandler) HandleListTickets(ctx *gin.Context) {
	tickets, stats, err := h.svc.ListTickets(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleListTickets -> h.svc.ListTickets -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, response.ListTicketsResponse{
		Tickets: tickets,
		Stats:   stats,
	})
}

// HandleToggleSelection godoc
// @Summary      Toggle a ticket number in the session's selection
// @Tags         selection
// @Produce      json
// @Param        X-Session-ID  header     string true "visitor session ID"
// @Param        request       body       request.ToggleSelectionRequest true "request body"
// @Success      200      {object}   response.SelectionResponse
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /selection/toggle [post]
func (h *TicketHandler) HandleToggleSelection(ctx *gin.Context) {
	sessionID, ok := requireSessionID(ctx)
	if !ok {
		return
	}

	var req request.ToggleSelectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	numbers, err := h.svc.ToggleSelection(ctx.Request.Context(), sessionID, req.Number)
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			response.RenderErr(ctx, response.ErrNotFound(err))

			return
		}

		err = fmt.Errorf("v1.HandleToggleSelection -> h.svc.ToggleSelection -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, response.SelectionResponse{Numbers: numbers})
}

// HandleClearSelection godoc
// @Summary      Drop the session's selection
// @Tags         selection
// @Param        X-Session-ID  header     string true "visitor session ID"
// @Success      204
// @Failure      400      {object}   response.Err
// @Router       /selection/clear [post]
func (h *TicketHandler) HandleClearSelection(ctx *gin.Context) {
	id, ok := requireSessionID(ctx)
	if !ok {
		return
	}

	h.svc.ClearSelection(id)
	ctx.Status(http.StatusNoContent)
}

// HandleCheckout godoc
// @Summary      Reserve every selected ticket for the given buyer
// @Tags         raffle
// @Produce      json
// @Param        X-Session-ID  header     string true "visitor session ID"
// @Param        request       body       request.CheckoutRequest true "request body"
// @Success      201      {object}   domain.ReservationResult
// @Failure      400      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /checkout [post]
func (h *TicketHandler) HandleCheckout(ctx *gin.Context) {
	sessionID, ok := requireSessionID(ctx)
	if !ok {
		return
	}

	var req request.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	result, err := h.svc.Checkout(ctx.Request.Context(), sessionID, domain.BuyerInfo{
		Name:       req.Name,
		WhatsApp:   req.WhatsApp,
		CPF:        req.CPF,
		ReceiptURL: req.ReceiptURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptySelection):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrTicketNotFound):
			response.RenderErr(ctx, response.ErrNotFound(err))
		case errors.Is(err, service.ErrTicketUnavailable), errors.Is(err, service.ErrStoreConflict):
			response.RenderErr(ctx, response.ErrConflict(err))
		default:
			err = fmt.Errorf("v1.HandleCheckout -> h.svc.Checkout -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusCreated, result)
}

func requireSessionID(ctx *gin.Context) (string, bool) {
	id := ctx.GetHeader(sessionHeader)
	if id == "" {
		response.RenderErr(ctx, response.ErrBadRequest(errMissingSession))

		return "", false
	}

	return id, true
}
