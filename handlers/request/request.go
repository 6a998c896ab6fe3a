// Package request decodes and validates JSON request bodies.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Error is a request problem that should be reported to the caller.
type Error struct {
	Status  int
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// Decode reads r's JSON body into v and validates it. The returned error is
// always an Error.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return Error{Status: http.StatusBadRequest, Message: "failed to decode body"}
	}
	if err := validate.Struct(v); err != nil {
		return Error{Status: http.StatusUnprocessableEntity, Message: describe(err)}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed on the %q rule", fe.Namespace(), fe.Tag())
	}
	return "invalid request: " + strings.Join(msgs, ", ")
}
