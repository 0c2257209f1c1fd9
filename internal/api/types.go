package api

import (
	json "github.com/goccy/go-json"

	"github.com/samcharles93/blockmm/internal/cpuinfo"
	"github.com/samcharles93/blockmm/pkg/blas"
)

// MatrixRequest is the body of /v1/multiply and /v1/transpose. Operands are
// nested arrays of rows. B is ignored by transpose.
type MatrixRequest struct {
	A      json.RawMessage `json:"a"`
	B      json.RawMessage `json:"b,omitempty"`
	Kernel string          `json:"kernel,omitempty"`
	DType  string          `json:"dtype,omitempty"`
}

type MatrixResponse struct {
	ID        string  `json:"id"`
	Object    string  `json:"object"`
	Created   int64   `json:"created"`
	Rows      int     `json:"rows"`
	Cols      int     `json:"cols"`
	Data      any     `json:"data"`
	Kernel    string  `json:"kernel"`
	DType     string  `json:"dtype"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

type InfoResponse struct {
	Object         string       `json:"object"`
	Version        string       `json:"version"`
	Threads        int          `json:"threads"`
	Block          blas.Config  `json:"block"`
	SmallThreshold int          `json:"small_threshold"`
	MaxElements    int          `json:"max_elements"`
	CPU            cpuinfo.Info `json:"cpu"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error ResponseError `json:"error"`
}
