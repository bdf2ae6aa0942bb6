package handler

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
)

// EnvHandler echoes an allow-list of environment variables so operators can
// confirm what the platform injected. Unset variables are omitted.
type EnvHandler struct {
	Keys []string
}

func (h *EnvHandler) Show(c echo.Context) error {
	vars := make(map[string]string, len(h.Keys))
	for _, k := range h.Keys {
		if v, ok := os.LookupEnv(k); ok {
			vars[k] = v
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"env": vars})
}
