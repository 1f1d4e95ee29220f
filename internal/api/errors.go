package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/go-chatlive/internal/chat"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(status int) *ApiError {
	return &ApiError{
		StatusCode: status,
		Message:    lower(http.StatusText(status)),
	}
}

func NewBadRequestError() *ApiError {
	return newApiError(http.StatusBadRequest)
}

func newBadRequest(msg string) *ApiError {
	e := NewBadRequestError()
	e.Message = msg
	return e
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound)
}

func NewInternalServerError(err error) *ApiError {
	e := newApiError(http.StatusInternalServerError)
	e.Err = err
	return e
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized)
}

func NewForbiddenError() *ApiError {
	return newApiError(http.StatusForbidden)
}

// fromDomainError maps the chat domain's error taxonomy to a response.
// Validation, authorization and lookup failures carry their message to the
// caller; anything else is an internal error.
func fromDomainError(err error) *ApiError {
	var apiErr *ApiError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, chat.ErrInvalid):
		apiErr = NewBadRequestError()
	case errors.Is(err, chat.ErrForbidden):
		apiErr = NewForbiddenError()
	case errors.Is(err, chat.ErrNotFound):
		apiErr = NewNotFoundError()
	default:
		return NewInternalServerError(err)
	}

	apiErr.Message = err.Error()
	return apiErr
}
