package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"chatrelay/internal/catalog"
)

type providersResponse struct {
	Providers []catalog.Provider `json:"providers"`
	Default   string             `json:"default"`
}

// handleProviders serves the catalogue so a settings UI can render provider
// and model pickers without hardcoding them.
func (s *Server) handleProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, providersResponse{
		Providers: catalog.All(),
		Default:   catalog.DefaultID,
	})
}
