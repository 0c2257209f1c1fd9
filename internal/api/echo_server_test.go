package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/blockmm/pkg/blas"
	"github.com/samcharles93/blockmm/pkg/threadpool"
)

func newTestEcho(t *testing.T, opts ...Option) *echo.Echo {
	t.Helper()
	pool := threadpool.New(2)
	t.Cleanup(pool.Stop)
	engine, err := blas.NewEngine(pool, blas.WithConfig(blas.Config{MR: 2, NR: 2, MC: 4, KC: 3, NC: 4}))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	server := NewServer(engine, opts...)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type productResponse struct {
	ID        string      `json:"id"`
	Object    string      `json:"object"`
	Rows      int         `json:"rows"`
	Cols      int         `json:"cols"`
	Data      [][]float64 `json:"data"`
	Kernel    string      `json:"kernel"`
	DType     string      `json:"dtype"`
	ElapsedMS float64     `json:"elapsed_ms"`
}

func decodeProduct(t *testing.T, rec *httptest.ResponseRecorder) productResponse {
	t.Helper()
	var out productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rec.Body.String())
	}
	return out
}

func TestMultiplyEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	for _, kernel := range []string{"xl", "sm", "auto", ""} {
		body := `{"a":[[1,2,3],[4,5,6]],"b":[[1,2],[3,4],[5,6]],"kernel":"` + kernel + `"}`
		rec := doJSON(t, e, http.MethodPost, "/v1/multiply", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("kernel %q: status %d body=%s", kernel, rec.Code, rec.Body.String())
		}
		got := decodeProduct(t, rec)
		if !strings.HasPrefix(got.ID, "mm-") {
			t.Fatalf("unexpected id %q", got.ID)
		}
		if got.Object != "matrix.product" || got.Rows != 2 || got.Cols != 2 || got.DType != "float64" {
			t.Fatalf("unexpected response %+v", got)
		}
		want := [][]float64{{22, 28}, {49, 64}}
		for i := range want {
			for j := range want[i] {
				if got.Data[i][j] != want[i][j] {
					t.Fatalf("kernel %q: data = %v", kernel, got.Data)
				}
			}
		}
		switch kernel {
		case "xl", "sm":
			if got.Kernel != kernel {
				t.Fatalf("kernel = %q, want %q", got.Kernel, kernel)
			}
		default:
			if got.Kernel != "sm" {
				t.Fatalf("auto picked %q for a tiny product", got.Kernel)
			}
		}
	}
}

func TestMultiplyInt64(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/multiply",
		`{"a":[[1,2],[3,4]],"b":[[1,0],[0,1]],"kernel":"xl","dtype":"int64"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeProduct(t, rec); got.DType != "int64" || got.Data[1][0] != 3 {
		t.Fatalf("unexpected response %+v", got)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/multiply",
		`{"a":[[1.5]],"b":[[1]],"dtype":"int64"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("fractional int64 input: status %d", rec.Code)
	}
}

func TestTransposeEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/transpose", `{"a":[[1,2,3],[4,5,6]],"kernel":"xl","dtype":"float32"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeProduct(t, rec)
	if got.Object != "matrix.transpose" || got.Rows != 3 || got.Cols != 2 {
		t.Fatalf("unexpected response %+v", got)
	}
	want := [][]float64{{1, 4}, {2, 5}, {3, 6}}
	for i := range want {
		for j := range want[i] {
			if got.Data[i][j] != want[i][j] {
				t.Fatalf("data = %v", got.Data)
			}
		}
	}
}

func TestBadRequests(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, WithMaxElements(4))
	tests := []struct {
		name, path, body string
		param            string
	}{
		{"malformed", "/v1/multiply", `{"a":`, ""},
		{"missing b", "/v1/multiply", `{"a":[[1]]}`, "b"},
		{"inner mismatch", "/v1/multiply", `{"a":[[1,2]],"b":[[1,2]]}`, ""},
		{"jagged", "/v1/multiply", `{"a":[[1,2],[3]],"b":[[1],[2]]}`, "a"},
		{"unknown kernel", "/v1/multiply", `{"a":[[1]],"b":[[1]],"kernel":"gpu"}`, "kernel"},
		{"unknown dtype", "/v1/transpose", `{"a":[[1]],"dtype":"complex128"}`, "dtype"},
		{"too large", "/v1/transpose", `{"a":[[1,2,3],[4,5,6]]}`, "a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
			}
			var env errorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}
			if env.Error.Type != "invalid_request_error" || env.Error.Message == "" {
				t.Fatalf("unexpected error envelope %+v", env)
			}
			if env.Error.Param != tc.param {
				t.Fatalf("param = %q, want %q", env.Error.Param, tc.param)
			}
		})
	}
}

func TestInfoEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodGet, "/v1/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	var info InfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Object != "info" || info.Threads < 1 || info.Block.KC != 3 || info.MaxElements != DefaultMaxElements {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.CPU.NumCPU < 1 {
		t.Fatalf("cpu report missing: %+v", info.CPU)
	}
}

func TestNoEngine(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewServer(nil).Register(e)
	rec := doJSON(t, e, http.MethodPost, "/v1/multiply", `{"a":[[1]],"b":[[1]]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("info status %d", rec.Code)
	}
}

func nestedOnes(rows, cols int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('[')
		for j := range cols {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('1')
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}

func TestMultiplyRejectsOversizedResult(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, WithMaxElements(100))

	// Each operand is within the limit; the 100x100 product is not.
	body := `{"a":` + nestedOnes(100, 1) + `,"b":` + nestedOnes(1, 100) + `}`
	rec := doJSON(t, e, http.MethodPost, "/v1/multiply", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if !strings.Contains(env.Error.Message, "100x100") {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}

	// The inner product has a 1x1 result and is accepted.
	body = `{"a":` + nestedOnes(1, 100) + `,"b":` + nestedOnes(100, 1) + `,"dtype":"int64"}`
	rec = doJSON(t, e, http.MethodPost, "/v1/multiply", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeProduct(t, rec); got.Rows != 1 || got.Cols != 1 || got.Data[0][0] != 100 {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestRequestBodyLimit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, WithMaxElements(4))
	padding := strings.Repeat(" ", 8192)
	rec := doJSON(t, e, http.MethodPost, "/v1/transpose", `{"a":[[1]],`+padding+`"kernel":"sm"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if env.Error.Code != "request_too_large" {
		t.Fatalf("unexpected error %+v", env.Error)
	}
}

func TestCheckResultSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rows, cols, limit int
		ok                bool
	}{
		{10, 10, 100, true},
		{10, 11, 100, false},
		{0, 1 << 40, 100, true},
		{1 << 40, 1 << 40, 100, false},
		{1 << 40, 1 << 40, 0, true},
	}
	for _, tc := range tests {
		err := checkResultSize(tc.rows, tc.cols, tc.limit)
		if (err == nil) != tc.ok {
			t.Errorf("checkResultSize(%d, %d, %d) = %v", tc.rows, tc.cols, tc.limit, err)
		}
	}
}
