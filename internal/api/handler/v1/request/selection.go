package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type ToggleSelectionRequest struct {
	Number string `json:"number"`
}

func (req *ToggleSelectionRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Number, validation.Required, validation.Match(ticketNumberExp)),
	)
}
