package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/blockmm/internal/cpuinfo"
	"github.com/samcharles93/blockmm/internal/logger"
	"github.com/samcharles93/blockmm/internal/version"
	"github.com/samcharles93/blockmm/pkg/blas"
	"github.com/samcharles93/blockmm/pkg/matrix"
)

// DefaultMaxElements caps the size of each operand and of the result.
const DefaultMaxElements = 16 << 20

// bytesPerElement bounds the JSON text of one element, separators included,
// when deriving the request body limit from the element limit.
const bytesPerElement = 32

type Server struct {
	engine      *blas.Engine
	selector    *blas.Selector
	log         logger.Logger
	maxElements int
	clock       func() time.Time
}

type Option func(*Server)

func WithSelector(sel *blas.Selector) Option {
	return func(s *Server) {
		if sel != nil {
			s.selector = sel
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxElements sets the element limit applied to each operand and to the
// result of a multiply. It also bounds the request body size. n <= 0
// disables both.
func WithMaxElements(n int) Option {
	return func(s *Server) {
		s.maxElements = n
	}
}

func NewServer(engine *blas.Engine, opts ...Option) *Server {
	s := &Server{
		engine:      engine,
		selector:    blas.NewSelector(0),
		log:         logger.Nop(),
		maxElements: DefaultMaxElements,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/multiply", s.handleMultiply)
	e.POST("/v1/transpose", s.handleTranspose)
	e.GET("/v1/info", s.handleInfo)
}

func (s *Server) handleMultiply(c *echo.Context) error {
	if s.engine == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "engine not configured", "", "")
	}
	req, err := s.decodeRequest(c)
	if err != nil {
		return s.writeFailure(c, "decode", err)
	}

	var resp *MatrixResponse
	switch dtype := normalizeDType(req.DType); dtype {
	case "float64":
		resp, err = multiplyAs[float64](s, req, dtype)
	case "float32":
		resp, err = multiplyAs[float32](s, req, dtype)
	case "int64":
		resp, err = multiplyAs[int64](s, req, dtype)
	default:
		err = newInvalidRequest("dtype", "unsupported dtype %q", req.DType)
	}
	if err != nil {
		return s.writeFailure(c, "multiply", err)
	}
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handleTranspose(c *echo.Context) error {
	if s.engine == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "engine not configured", "", "")
	}
	req, err := s.decodeRequest(c)
	if err != nil {
		return s.writeFailure(c, "decode", err)
	}

	var resp *MatrixResponse
	switch dtype := normalizeDType(req.DType); dtype {
	case "float64":
		resp, err = transposeAs[float64](s, req, dtype)
	case "float32":
		resp, err = transposeAs[float32](s, req, dtype)
	case "int64":
		resp, err = transposeAs[int64](s, req, dtype)
	default:
		err = newInvalidRequest("dtype", "unsupported dtype %q", req.DType)
	}
	if err != nil {
		return s.writeFailure(c, "transpose", err)
	}
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handleInfo(c *echo.Context) error {
	info := InfoResponse{
		Object:         "info",
		Version:        version.String(),
		SmallThreshold: s.selector.SmallThreshold(),
		MaxElements:    s.maxElements,
		CPU:            cpuinfo.Detect(),
	}
	if s.engine != nil {
		info.Threads = s.engine.Pool().NumThreads()
		info.Block = s.engine.Config()
	}
	return writeJSON(c, http.StatusOK, info)
}

func multiplyAs[T matrix.Number](s *Server, req MatrixRequest, dtype string) (*MatrixResponse, error) {
	kernel, auto, err := parseKernel(req.Kernel)
	if err != nil {
		return nil, err
	}
	a, err := decodeOperand[T]("a", req.A, s.maxElements)
	if err != nil {
		return nil, err
	}
	b, err := decodeOperand[T]("b", req.B, s.maxElements)
	if err != nil {
		return nil, err
	}
	if a.Cols() == b.Rows() {
		if err := checkResultSize(a.Rows(), b.Cols(), s.maxElements); err != nil {
			return nil, err
		}
	}

	start := s.clock()
	var c *matrix.Dynamic[T]
	if auto {
		c, kernel, err = blas.MultiplyAuto[T](s.engine, s.selector, a, b)
	} else {
		c, err = blas.Multiply[T](s.engine, a, b, kernel)
	}
	if err != nil {
		return nil, err
	}
	return newResult(s, "matrix.product", c, kernel, dtype, start), nil
}

func transposeAs[T matrix.Number](s *Server, req MatrixRequest, dtype string) (*MatrixResponse, error) {
	kernel, auto, err := parseKernel(req.Kernel)
	if err != nil {
		return nil, err
	}
	a, err := decodeOperand[T]("a", req.A, s.maxElements)
	if err != nil {
		return nil, err
	}

	start := s.clock()
	var c *matrix.Dynamic[T]
	if auto {
		c, kernel, err = blas.TransposeAuto[T](s.engine, s.selector, a)
	} else {
		c, err = blas.Transpose[T](s.engine, a, kernel)
	}
	if err != nil {
		return nil, err
	}
	return newResult(s, "matrix.transpose", c, kernel, dtype, start), nil
}

func newResult[T matrix.Number](s *Server, object string, c *matrix.Dynamic[T], kernel blas.Kernel, dtype string, start time.Time) *MatrixResponse {
	now := s.clock()
	return &MatrixResponse{
		ID:        newResultID(),
		Object:    object,
		Created:   now.Unix(),
		Rows:      c.Rows(),
		Cols:      c.Cols(),
		Data:      c.ToRows(),
		Kernel:    kernel.String(),
		DType:     dtype,
		ElapsedMS: float64(now.Sub(start).Microseconds()) / 1000,
	}
}

// bodyLimit is the largest request body accepted: two operands at the
// element limit plus room for the other fields.
func (s *Server) bodyLimit() int64 {
	if s.maxElements <= 0 {
		return 0
	}
	return 2*int64(s.maxElements)*bytesPerElement + 4096
}

func (s *Server) decodeRequest(c *echo.Context) (MatrixRequest, error) {
	body := c.Request().Body
	if limit := s.bodyLimit(); limit > 0 {
		body = http.MaxBytesReader(c.Response(), body, limit)
	}
	req, err := decodeJSON[MatrixRequest](body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, err
		}
		return req, newInvalidRequest("", "invalid request body: %v", err)
	}
	return req, nil
}

func (s *Server) writeFailure(c *echo.Context, op string, err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		msg := fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error", msg, "", "request_too_large")
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, matrix.ErrDimensionMismatch),
		errors.Is(err, matrix.ErrOverflow),
		errors.Is(err, blas.ErrUnsupportedKernel):
		return writeBadRequest(c, err.Error(), errorParam(err))
	default:
		s.log.Error("matrix request failed", "op", op, "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
}
