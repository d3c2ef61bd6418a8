package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		h := NewHealthHandler(discardLogger())
		rr := serve(t, http.HandlerFunc(h.Healthz), "GET", "/healthz", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{}}`, rr.Body.String())
	})

	t.Run("one dependency down", func(t *testing.T) {
		h := NewHealthHandler(discardLogger())
		h.Register("database", func(context.Context) error { return nil })
		h.Register("redis", func(context.Context) error { return errors.New("dial tcp: connection refused") })

		rr := serve(t, http.HandlerFunc(h.Healthz), "GET", "/healthz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"database":"ok","redis":"dial tcp: connection refused"}}`, rr.Body.String())
	})
}
