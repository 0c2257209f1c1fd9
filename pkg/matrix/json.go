package matrix

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

type wireMatrix[T Number] struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
	Data []T `json:"data"`
}

// MarshalJSON encodes the matrix as {"rows":R,"cols":C,"data":[...]} with
// data in row-major order.
func (m *Dynamic[T]) MarshalJSON() ([]byte, error) {
	data := m.data
	if data == nil {
		data = []T{}
	}
	return json.Marshal(wireMatrix[T]{Rows: m.rows, Cols: m.cols, Data: data})
}

// UnmarshalJSON accepts either the object form written by MarshalJSON or a
// nested array of rows.
func (m *Dynamic[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		out, err := DecodeRows[T](b)
		if err != nil {
			return err
		}
		*m = *out
		return nil
	}

	var w wireMatrix[T]
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("matrix: decode: %w", err)
	}
	out, err := FromData(w.Rows, w.Cols, w.Data)
	if err != nil {
		return err
	}
	*m = *out
	return nil
}

// DecodeRows parses a JSON array of equal-length rows.
func DecodeRows[T Number](b []byte) (*Dynamic[T], error) {
	var rows [][]T
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("matrix: decode rows: %w", err)
	}
	return FromRows(rows)
}

// Decode reads one matrix in either JSON form from r.
func Decode[T Number](r io.Reader) (*Dynamic[T], error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m := &Dynamic[T]{}
	if err := m.UnmarshalJSON(b); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode writes m to w. When nested is set the output is an array of rows,
// otherwise the object form.
func Encode[T Number](w io.Writer, m Dense[T], nested bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if nested {
		return enc.Encode(ToRows(m))
	}
	data := m.Data()
	if data == nil {
		data = []T{}
	}
	return enc.Encode(wireMatrix[T]{Rows: m.Rows(), Cols: m.Cols(), Data: data})
}
