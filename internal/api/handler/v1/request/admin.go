package request

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

var ticketNumberExp = regexp.MustCompile(`^[0-9]{3}$`)

type AdminLoginRequest struct {
	Password string `json:"password"`
}

func (req *AdminLoginRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Password, validation.Required),
	)
}

type TicketNumbersRequest struct {
	Numbers []string `json:"numbers"`
}

func (req *TicketNumbersRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Numbers, validation.Required),
	)
	if err != nil {
		return err
	}

	for _, n := range req.Numbers {
		if !ticketNumberExp.MatchString(n) {
			return fmt.Errorf("invalid ticket number %q", n)
		}
	}

	return nil
}
