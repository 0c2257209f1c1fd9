package api

import (
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/blockmm/pkg/blas"
	"github.com/samcharles93/blockmm/pkg/matrix"
)

func writeBadRequest(c *echo.Context, msg, param string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return writeJSON(c, status, errorEnvelope{
		Error: ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

// decodeJSON reads all of r before decoding so that read failures, such as
// an exceeded body limit, surface unchanged.
func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	b, err := io.ReadAll(r)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

func newResultID() string {
	return "mm-" + uuid.NewString()
}

// parseKernel resolves a request's kernel field. An empty value or "auto"
// defers to the server's Selector.
func parseKernel(name string) (blas.Kernel, bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return 0, true, nil
	}
	k, err := blas.ParseKernel(name)
	if err != nil {
		return 0, false, newInvalidRequest("kernel", "%v", err)
	}
	return k, false, nil
}

func normalizeDType(dtype string) string {
	dtype = strings.ToLower(strings.TrimSpace(dtype))
	if dtype == "" {
		return "float64"
	}
	return dtype
}

// decodeOperand parses a nested-array operand and enforces the element
// limit.
func decodeOperand[T matrix.Number](name string, raw json.RawMessage, maxElements int) (*matrix.Dynamic[T], error) {
	if len(raw) == 0 {
		return nil, newInvalidRequest(name, "is required")
	}
	m, err := matrix.DecodeRows[T](raw)
	if err != nil {
		return nil, newInvalidRequest(name, "%v", err)
	}
	if n := len(m.Data()); maxElements > 0 && n > maxElements {
		return nil, newInvalidRequest(name, "%d elements exceeds the limit of %d", n, maxElements)
	}
	return m, nil
}

// checkResultSize rejects a rows x cols result larger than maxElements
// before anything is allocated for it.
func checkResultSize(rows, cols, maxElements int) error {
	if maxElements <= 0 || rows == 0 || cols <= maxElements/rows {
		return nil
	}
	return newInvalidRequest("", "result of %dx%d exceeds the limit of %d elements", rows, cols, maxElements)
}
