package response

import "github.com/rifahub/raffle-api/internal/domain"

type ListTicketsResponse struct {
	Tickets []domain.Ticket    `json:"tickets"`
	Stats   domain.TicketStats `json:"stats"`
}

type SelectionResponse struct {
	Numbers []string `json:"numbers"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ConfirmationResponse struct {
	Numbers []string `json:"numbers"`
	Message string   `json:"message"`
}
