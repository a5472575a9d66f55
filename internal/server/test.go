package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// testRequest is the wire payload of POST /chat/test.
type testRequest struct {
	Provider    string            `json:"provider"`
	APIKey      string            `json:"apiKey"`
	Model       string            `json:"model"`
	ExtraConfig map[string]string `json:"extraConfig"`
}

type testResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleChatTest performs one minimal generation to prove the supplied
// credentials work. Vendor-side failures are reported in the body with HTTP
// 200: this endpoint exists to report validation outcomes to a settings UI,
// and bad credentials are an outcome, not a transport failure. Only malformed
// input and missing required fields before the call use a 400.
func (s *Server) handleChatTest(c echo.Context) error {
	var req testRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	_, handle, err := s.resolveSelection(ctx, req.Provider, req.APIKey, req.Model, req.ExtraConfig)
	if err != nil {
		var reqErr requestError
		if errors.As(err, &reqErr) {
			return c.JSON(reqErr.Status, testResponse{Success: false, Error: reqErr.Message})
		}
		return err
	}

	if err := handle.Verify(ctx); err != nil {
		return c.JSON(http.StatusOK, testResponse{Success: false, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, testResponse{Success: true})
}
