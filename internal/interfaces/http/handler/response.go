package handler

import "github.com/erp/procurement/internal/interfaces/http/dto"

// APIResponse is the typed form of dto.Response, used when decoding responses
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}
