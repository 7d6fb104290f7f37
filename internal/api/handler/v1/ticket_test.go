package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifahub/raffle-api/internal/api/handler/v1/response"
	"github.com/rifahub/raffle-api/internal/domain"
	"github.com/rifahub/raffle-api/internal/service"
)

type fakeRaffleService struct {
	tickets     []domain.Ticket
	selection   []string
	checkoutErr error
	result      domain.ReservationResult
}

func (f *fakeRaffleService) Raffle() domain.RaffleInfo {
	return domain.RaffleInfo{Title: "Sorteio de teste", Price: 30}
}

func (f *fakeRaffleService) ListTickets(_ context.Context) ([]domain.Ticket, domain.TicketStats, error) {
	return f.tickets, domain.CountByStatus(f.tickets), nil
}

func (f *fakeRaffleService) ToggleSelection(_ context.Context, _, number string) ([]string, error) {
	for _, t := range f.tickets {
		if t.Number == number {
			f.selection = append(f.selection, number)
			return f.selection, nil
		}
	}

	return nil, service.ErrTicketNotFound
}

func (f *fakeRaffleService) Selection(string) []string {
	return f.selection
}

func (f *fakeRaffleService) ClearSelection(string) {
	f.selection = nil
}

func (f *fakeRaffleService) Checkout(_ context.Context, _ string, _ domain.BuyerInfo) (domain.ReservationResult, error) {
	if f.checkoutErr != nil {
		return domain.ReservationResult{}, f.checkoutErr
	}

	return f.result, nil
}

func newTicketRouter(svc RaffleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := NewTicketHandler(svc)
	router.GET("/tickets", h.HandleListTickets)
	router.POST("/selection/toggle", h.HandleToggleSelection)
	router.POST("/selection/clear", h.HandleClearSelection)
	router.POST("/checkout", h.HandleCheckout)

	return router
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	return recorder
}

var sessionHeaders = map[string]string{sessionHeader: "visitor-1"}

func TestHandleListTickets(t *testing.T) {
	svc := &fakeRaffleService{tickets: domain.NewTicketSet()}
	router := newTicketRouter(svc)

	recorder := doRequest(router, http.MethodGet, "/tickets", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp response.ListTicketsResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Len(t, resp.Tickets, domain.TicketCount)
	assert.Equal(t, domain.TicketCount, resp.Stats.Available)
}

func TestHandleToggleSelection(t *testing.T) {
	svc := &fakeRaffleService{tickets: domain.NewTicketSet()}
	router := newTicketRouter(svc)

	t.Run("missing session header", func(t *testing.T) {
		recorder := doRequest(router, http.MethodPost, "/selection/toggle", `{"number":"005"}`, nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("malformed number", func(t *testing.T) {
		recorder := doRequest(router, http.MethodPost, "/selection/toggle", `{"number":"5"}`, sessionHeaders)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("unknown number", func(t *testing.T) {
		recorder := doRequest(router, http.MethodPost, "/selection/toggle", `{"number":"999"}`, sessionHeaders)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("toggle ok", func(t *testing.T) {
		recorder := doRequest(router, http.MethodPost, "/selection/toggle", `{"number":"005"}`, sessionHeaders)
		require.Equal(t, http.StatusOK, recorder.Code)

		var resp response.SelectionResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, []string{"005"}, resp.Numbers)
	})
}

func TestHandleCheckout(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("reservation created", func(t *testing.T) {
		svc := &fakeRaffleService{
			result: domain.ReservationResult{
				Numbers:    []string{"005", "012"},
				ReservedAt: now,
				ExpiresAt:  now.Add(48 * time.Hour),
				TotalPrice: 60,
				Notice:     "Seu número foi RESERVADO por 48 horas.",
			},
		}
		router := newTicketRouter(svc)

		body := `{"name":"Maria Silva","whatsapp":"5537999990000"}`
		recorder := doRequest(router, http.MethodPost, "/checkout", body, sessionHeaders)
		require.Equal(t, http.StatusCreated, recorder.Code)

		var result domain.ReservationResult
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		assert.Equal(t, []string{"005", "012"}, result.Numbers)
		assert.Equal(t, 60.0, result.TotalPrice)
	})

	t.Run("missing buyer name", func(t *testing.T) {
		router := newTicketRouter(&fakeRaffleService{})

		body := `{"whatsapp":"5537999990000"}`
		recorder := doRequest(router, http.MethodPost, "/checkout", body, sessionHeaders)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("empty selection", func(t *testing.T) {
		router := newTicketRouter(&fakeRaffleService{checkoutErr: service.ErrEmptySelection})

		body := `{"name":"Maria Silva","whatsapp":"5537999990000"}`
		recorder := doRequest(router, http.MethodPost, "/checkout", body, sessionHeaders)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("ticket taken meanwhile", func(t *testing.T) {
		router := newTicketRouter(&fakeRaffleService{checkoutErr: service.ErrTicketUnavailable})

		body := `{"name":"Maria Silva","whatsapp":"5537999990000"}`
		recorder := doRequest(router, http.MethodPost, "/checkout", body, sessionHeaders)
		assert.Equal(t, http.StatusConflict, recorder.Code)
	})
}

func TestHandleClearSelection(t *testing.T) {
	svc := &fakeRaffleService{selection: []string{"001"}}
	router := newTicketRouter(svc)

	recorder := doRequest(router, http.MethodPost, "/selection/clear", "", sessionHeaders)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, svc.selection)
}
