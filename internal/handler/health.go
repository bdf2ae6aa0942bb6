package handler // declare the package name; contains HTTP handlers

import (
	"net/http" // net/http provides status codes and response helpers

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is the liveness endpoint used by the hosting platform and load
// balancers. It touches no dependency and always answers {"status":"OK"}.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "OK"})
}
