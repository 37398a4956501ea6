package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("procurement", "1.0.0")
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("procurement", "1.2.3")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/system/info", nil)

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse[SystemInfoResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "procurement", resp.Data.Name)
	assert.Equal(t, "1.2.3", resp.Data.Version)
	assert.NotEmpty(t, resp.Data.GoVersion)
	assert.NotEmpty(t, resp.Data.Uptime)
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("procurement", "1.0.0")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/system/ping", nil)

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp APIResponse[PingResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pong", resp.Data.Message)

	_, err := time.Parse(time.RFC3339, resp.Data.Timestamp)
	assert.NoError(t, err)
}

func TestSystemHandler_Health(t *testing.T) {
	call := func(h *SystemHandler) (*httptest.ResponseRecorder, APIResponse[HealthResponse]) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
		h.Health(c)

		var resp APIResponse[HealthResponse]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w, resp
	}

	t.Run("no checks", func(t *testing.T) {
		w, resp := call(NewSystemHandler("procurement", "1.0.0"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", resp.Data.Status)
		assert.Empty(t, resp.Data.Checks)
	})

	t.Run("all dependencies healthy", func(t *testing.T) {
		h := NewSystemHandler("procurement", "1.0.0")
		h.AddCheck("database", func(context.Context) error { return nil })
		h.AddCheck("redis", func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "probes run with a deadline")
			return nil
		})

		w, resp := call(h)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Data.Checks)
	})

	t.Run("failing dependency degrades", func(t *testing.T) {
		h := NewSystemHandler("procurement", "1.0.0")
		h.AddCheck("database", func(context.Context) error { return nil })
		h.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		w, resp := call(h)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, "degraded", resp.Data.Status)
		assert.Equal(t, "connection refused", resp.Data.Checks["redis"])
		assert.Equal(t, "ok", resp.Data.Checks["database"])
	})
}

func TestHealthResponse_Envelope(t *testing.T) {
	data, err := json.Marshal(dto.NewSuccessResponse(HealthResponse{Status: "ok"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, string(data))
}
