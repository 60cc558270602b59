// handlers.go - Shared response helpers
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is the content type of MessagePack responses.
const MIMEApplicationMsgpack = "application/msgpack"

// wantsMsgpack reports whether the client asked for MessagePack.
func wantsMsgpack(c echo.Context) bool {
	for _, part := range strings.Split(c.Request().Header.Get(echo.HeaderAccept), ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(mt, MIMEApplicationMsgpack) || strings.EqualFold(mt, "application/x-msgpack") {
			return true
		}
	}
	return false
}

// respond writes v as JSON, or as MessagePack when the client accepts it.
func respond(c echo.Context, status int, v interface{}) error {
	c.Response().Header().Add(echo.HeaderVary, echo.HeaderAccept)
	if !wantsMsgpack(c) {
		return c.JSON(status, v)
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return NewInternalError("failed to encode response", err)
	}
	return c.Blob(status, MIMEApplicationMsgpack, data)
}

// sessionParam returns the :id path parameter or a validation error.
func sessionParam(c echo.Context) (string, error) {
	id := c.Param("id")
	if id == "" {
		return "", NewValidationError("id")
	}
	return id, nil
}

// noContent is used by endpoints that acknowledge without a body.
func noContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
