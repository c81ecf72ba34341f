package presenter

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

type ackResponse struct {
	OK bool `json:"ok"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// Ack acknowledges a write without exposing the created record.
func Ack(c echo.Context) error {
	return c.JSON(http.StatusOK, ackResponse{OK: true})
}

func BadRequest(c echo.Context, err error) error {
	fmt.Println("Bad request:", err)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// Rejected is the fixed answer to every credential submission. The page
// never learns whether the capture succeeded.
func Rejected(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid email or password"})
}

func NotFound(c echo.Context, msg string) error {
	fmt.Println("Not found:", msg)
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

// InternalError logs the cause and answers with a generic message; internal
// detail stays on the server side.
func InternalError(c echo.Context, err error) error {
	fmt.Println("Internal error:", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "server error"})
}
