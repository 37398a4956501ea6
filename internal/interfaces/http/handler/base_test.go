package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from logger middleware",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(RequestIDKey, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-id")
				c.Request.Header.Set(RequestIDKey, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext()
			tt.setup(c)
			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestBaseHandlerSuccessResponses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success", func(t *testing.T) {
		c, w := newTestContext()
		h.Success(c, map[string]string{"order_number": "PO-1"})

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		assert.Nil(t, resp.Error)
	})

	t.Run("created", func(t *testing.T) {
		c, w := newTestContext()
		h.Created(c, map[string]string{"order_number": "PO-1"})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("with meta", func(t *testing.T) {
		c, w := newTestContext()
		h.SuccessWithMeta(c, []string{"a", "b"}, 45, 2, 20)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(45), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 3, resp.Meta.TotalPages)
	})
}

func TestBaseHandlerErrorResponses(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name   string
		call   func(c *gin.Context)
		status int
		code   string
	}{
		{"bad request", func(c *gin.Context) { h.BadRequest(c, "bad") }, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"not found", func(c *gin.Context) { h.NotFound(c, "missing") }, http.StatusNotFound, dto.ErrCodeNotFound},
		{"validation", func(c *gin.Context) {
			h.ValidationError(c, []dto.ValidationDetail{{Field: "items", Message: "This field is required"}})
		}, http.StatusBadRequest, dto.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			c.Set("request_id", "req-1")
			tt.call(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
		reason       string
	}{
		{
			name:         "validation",
			err:          shared.NewValidationError("EXCEEDS_PENDING_QUANTITY", "too much").WithSubject("Flour"),
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeValidation,
			reason:       "EXCEEDS_PENDING_QUANTITY",
		},
		{
			name:         "not found",
			err:          shared.ErrNotFound,
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
			reason:       "NOT_FOUND",
		},
		{
			name:         "invalid transition",
			err:          shared.NewInvalidTransitionError("INVALID_TRANSITION", "cannot approve"),
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeInvalidState,
			reason:       "INVALID_TRANSITION",
		},
		{
			name:         "concurrency",
			err:          shared.ErrConcurrencyConflict,
			expectedCode: http.StatusConflict,
			expectedErr:  dto.ErrCodeConcurrencyConflict,
			reason:       "CONCURRENCY_CONFLICT",
		},
		{
			name:         "wrapped duplicate request",
			err:          fmt.Errorf("receive goods: %w", shared.ErrDuplicateRequest),
			expectedCode: http.StatusConflict,
			expectedErr:  dto.ErrCodeConcurrencyConflict,
			reason:       "DUPLICATE_REQUEST",
		},
		{
			name:         "infrastructure",
			err:          assert.AnError,
			expectedCode: http.StatusInternalServerError,
			expectedErr:  dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
			assert.Equal(t, tt.reason, resp.Error.Reason)
		})
	}

	t.Run("nil writes nothing", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()
		h.HandleError(c, nil)
		assert.Empty(t, w.Body.String())
	})

	t.Run("internal errors are attached for the request log", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()
		h.HandleError(c, fmt.Errorf("dial tcp: refused"))

		assert.Len(t, c.Errors, 1)
		assert.NotContains(t, w.Body.String(), "dial tcp")
	})
}
