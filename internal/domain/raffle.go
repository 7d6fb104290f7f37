package domain

import "time"

// RaffleInfo is the static configuration of the raffle itself. It has no
// lifecycle: it is loaded once from configuration and served read-only.
type RaffleInfo struct {
	Title  string   `json:"title"`
	Prize  string   `json:"prize"`
	Price  float64  `json:"price"`
	Rules  []string `json:"rules"`
	PixKey string   `json:"pix_key"`
}

// ReservationResult is what a successful checkout hands back to the caller.
type ReservationResult struct {
	Numbers     []string  `json:"numbers"`
	ReservedAt  time.Time `json:"reserved_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	TotalPrice  float64   `json:"total_price"`
	Notice      string    `json:"notice"`
	WhatsAppURL string    `json:"whatsapp_url,omitempty"`
}
