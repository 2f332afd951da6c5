package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/impact-snapshot/internal/app"
	"github.com/pscheid92/impact-snapshot/internal/domain"
	apperrors "github.com/pscheid92/impact-snapshot/internal/platform/errors"
)

const maxRequestBodyBytes = 4 << 10

type injectErrorRequest struct {
	Endpoint  string `json:"endpoint"`
	ErrorType string `json:"error_type"`
}

func (s *Server) registerSnapshotRoutes() {
	s.echo.GET("/snapshot", s.handleGetSnapshot)

	limited := s.echo.Group("", newRateLimiter(s.config.InjectRateLimit, s.config.InjectRateBurst))
	limited.POST("/inject", s.handleInjectError)
	limited.POST("/inject-error", s.handleInjectError)
	limited.POST("/rollback", s.handleRollback)
}

func (s *Server) handleGetSnapshot(c echo.Context) error {
	snapshot, err := s.app.Snapshot(c.Request().Context())
	if err != nil {
		return err
	}
	if err := c.JSON(http.StatusOK, snapshot); err != nil {
		return fmt.Errorf("failed to write snapshot response: %w", err)
	}
	return nil
}

// handleInjectError serves both /inject-error and the legacy /inject. The body is
// optional; an empty body injects a critical error on the default endpoint.
func (s *Server) handleInjectError(c echo.Context) error {
	var req injectErrorRequest
	if err := decodeOptionalJSON(c, &req); err != nil {
		return err
	}

	result, err := s.app.InjectError(c.Request().Context(), app.InjectRequest{
		Endpoint:  req.Endpoint,
		ErrorType: req.ErrorType,
	})
	if errors.Is(err, domain.ErrInvalidStatus) {
		return apperrors.ValidationError("error_type must be one of healthy, warning, critical").
			WithField("error_type", req.ErrorType)
	}
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, result); err != nil {
		return fmt.Errorf("failed to write inject response: %w", err)
	}
	return nil
}

func (s *Server) handleRollback(c echo.Context) error {
	result, err := s.app.Rollback(c.Request().Context())
	if err != nil {
		return err
	}
	if err := c.JSON(http.StatusOK, result); err != nil {
		return fmt.Errorf("failed to write rollback response: %w", err)
	}
	return nil
}

// decodeOptionalJSON decodes the request body into v unless the body is empty.
// Unknown fields are ignored.
func decodeOptionalJSON(c echo.Context, v any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRequestBodyBytes+1))
	if err != nil {
		return apperrors.ValidationError("failed to read request body")
	}
	if len(body) > maxRequestBodyBytes {
		return apperrors.ValidationError("request body too large")
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	if ct := c.Request().Header.Get(echo.HeaderContentType); ct != "" && !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		return apperrors.ValidationError("request body must be JSON").WithField("content_type", ct)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.ValidationError("invalid JSON body").WithField("reason", err.Error())
	}
	return nil
}
