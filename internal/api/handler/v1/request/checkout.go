package request

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	whatsappExp = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	cpfExp      = regexp.MustCompile(`^\d{3}\.?\d{3}\.?\d{3}-?\d{2}$`)
)

type CheckoutRequest struct {
	Name       string `json:"name"`
	WhatsApp   string `json:"whatsapp"`
	CPF        string `json:"cpf,omitempty"`
	ReceiptURL string `json:"receipt_url,omitempty"`
}

func (req *CheckoutRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.WhatsApp, validation.Required, validation.Match(whatsappExp)),
		validation.Field(&req.CPF, validation.Match(cpfExp)),
	)
}
