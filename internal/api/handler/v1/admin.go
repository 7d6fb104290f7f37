package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rifahub/raffle-api/internal/api/handler/v1/request"
	"github.com/rifahub/raffle-api/internal/api/handler/v1/response"
	"github.com/rifahub/raffle-api/internal/config"
	"github.com/rifahub/raffle-api/internal/pkg/jwthelper"
	"github.com/rifahub/raffle-api/internal/service"
)

var errGateLocked = errors.New("admin gate is locked")

type AuthService interface {
	Authenticate(password string) error
	Close()
	Unlocked() bool
}

type AdminRaffleService interface {
	ConfirmPayment(ctx context.Context, numbers []string) error
	ReleaseTickets(ctx context.Context, numbers []string) error
	MarkUnavailable(ctx context.Context, numbers []string) error
}

type AdminHandler struct {
	conf *config.APIConfig
	auth AuthService
	svc  AdminRaffleService
}

func NewAdminHandler(conf *config.APIConfig, auth AuthService, svc AdminRaffleService) *AdminHandler {
	return &AdminHandler{
		conf: conf,
		auth: auth,
		svc:  svc,
	}
}

// HandleLogin godoc
// @Summary      Unlock the admin gate with the shared secret
// @Tags         admin
// @Produce      json
// @Param        request   body      request.AdminLoginRequest true "request body"
// @Success      200      {object}   response.LoginResponse
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/login [post]
func (h *AdminHandler) HandleLogin(ctx *gin.Context) {
	var req request.AdminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := h.auth.Authenticate(req.Password); err != nil {
		response.RenderErr(ctx, response.ErrUnauthorized(service.ErrWrongPassword))

		return
	}

	token, err := jwthelper.GenerateToken([]byte(h.conf.JWTSigningKey), "admin", ctx.Request.UserAgent())
	if err != nil {
		err = fmt.Errorf("v1.HandleLogin -> jwthelper.GenerateToken -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, response.LoginResponse{Token: token})
}

// HandleLogout godoc
// @Summary      Close the admin gate
// @Tags         admin
// @Security     BearerAuth
// @Success      204
// @Router       /admin/logout [post]
func (h *AdminHandler) HandleLogout(ctx *gin.Context) {
	h.auth.Close()
	ctx.Status(http.StatusNoContent)
}

// HandleConfirmPayment godoc
// @Summary      Mark reserved tickets as paid
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        request   body      request.TicketNumbersRequest true "request body"
// @Success      200      {object}   response.ConfirmationResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Router       /admin/confirm-payment [post]
func (h *AdminHandler) HandleConfirmPayment(ctx *gin.Context) {
	h.mutateTickets(ctx, h.svc.ConfirmPayment, "payment confirmed")
}

// HandleRelease godoc
// @Summary      Return reserved tickets to the pool
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        request   body      request.TicketNumbersRequest true "request body"
// @Success      200      {object}   response.ConfirmationResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Router       /admin/release [post]
func (h *AdminHandler) HandleRelease(ctx *gin.Context) {
	h.mutateTickets(ctx, h.svc.ReleaseTickets, "tickets released")
}

// HandleMarkUnavailable godoc
// @Summary      Pull available tickets out of sale
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        request   body      request.TicketNumbersRequest true "request body"
// @Success      200      {object}   response.ConfirmationResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Router       /admin/unavailable [post]
func (h *AdminHandler) HandleMarkUnavailable(ctx *gin.Context) {
	h.mutateTickets(ctx, h.svc.MarkUnavailable, "tickets marked unavailable")
}

func (h *AdminHandler) mutateTickets(ctx *gin.Context, mutate func(context.Context, []string) error, message string) {
	if !h.auth.Unlocked() {
		response.RenderErr(ctx, response.ErrUnauthorized(errGateLocked))

		return
	}

	var req request.TicketNumbersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := mutate(ctx.Request.Context(), req.Numbers); err != nil {
		switch {
		case errors.Is(err, service.ErrNoNumbers):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrTicketNotFound):
			response.RenderErr(ctx, response.ErrNotFound(err))
		case errors.Is(err, service.ErrTicketNotReserved),
			errors.Is(err, service.ErrTicketUnavailable),
			errors.Is(err, service.ErrStoreConflict):
			response.RenderErr(ctx, response.ErrConflict(err))
		default:
			err = fmt.Errorf("v1.AdminHandler -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusOK, response.ConfirmationResponse{
		Numbers: req.Numbers,
		Message: message,
	})
}
