package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the only envelope the portal speaks, on both sides of the wire.
type Response[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Body    T      `json:"body,omitempty"`
}

type ListBody[T any] struct {
	List  []T    `json:"list"`
	Total uint64 `json:"total"`
}

// SuccessOne wraps a single object.
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Status:  true,
		Message: message,
		Body:    data,
	})
}

func SuccessList[T any](c echo.Context, message string, list []T) error {
	if list == nil {
		list = make([]T, 0)
	}

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Status:  true,
		Message: message,
		Body: ListBody[T]{
			List:  list,
			Total: uint64(len(list)),
		},
	})
}
