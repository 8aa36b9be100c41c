// =============================================================================
// EPC QR Code Generator - QR Renderer
// =============================================================================
//
// The renderer turns a serialized payload into a square matrix of dark and
// light modules. QR symbol construction itself (segment encoding, Reed-Solomon
// error correction, masking) is delegated to rsc.io/qr.
//
// ERROR CORRECTION:
//   EPC069-12 mandates level M, which is the default here. The smallest
//   symbol version that holds the payload at that level is chosen.
//
// ERRORS:
//   A payload that fits no symbol version at the chosen level yields a
//   *RenderError matching ErrPayloadTooLarge. This is the authoritative
//   capacity check; the serializer's 331 byte limit is only a format guard.
//
// =============================================================================

package qrrender

import (
	"errors"
	"fmt"
	"strings"

	"rsc.io/qr"
)

// ErrPayloadTooLarge is matched by RenderError.
var ErrPayloadTooLarge = errors.New("payload does not fit any QR symbol version")

// Level is a QR error correction level.
type Level = qr.Level

// Error correction levels, least to most tolerant.
const (
	LevelL = qr.L
	LevelM = qr.M
	LevelQ = qr.Q
	LevelH = qr.H
)

// Renderer encodes a payload into a module matrix.
type Renderer interface {
	Render(payload []byte) (*Matrix, error)
}

// RenderError wraps a failure reported by the QR encoder. It matches
// ErrPayloadTooLarge only when the encoder found no version large enough.
type RenderError struct {
	PayloadSize int
	Level       Level
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to encode %d byte payload as QR code (level %d): %v", e.PayloadSize, e.Level, e.Err)
}

func (e *RenderError) Unwrap() []error {
	if isCapacityError(e.Err) {
		return []error{ErrPayloadTooLarge, e.Err}
	}
	return []error{e.Err}
}

// isCapacityError matches the error rsc.io/qr returns when the text exceeds
// the largest version ("text too long to encode as QR").
func isCapacityError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "too long")
}

// =============================================================================
// MATRIX
// =============================================================================

// Matrix is a square grid of QR modules, row-major, true meaning dark.
type Matrix struct {
	size    int
	modules []bool
}

// NewMatrix builds a matrix from rows of modules. All rows must have the same
// length as the number of rows.
func NewMatrix(rows [][]bool) (*Matrix, error) {
	size := len(rows)
	m := &Matrix{size: size, modules: make([]bool, 0, size*size)}
	for i, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("row %d has %d modules, want %d", i, len(row), size)
		}
		m.modules = append(m.modules, row...)
	}
	return m, nil
}

// Size returns the number of modules on a side.
func (m *Matrix) Size() int { return m.size }

// Dark reports whether the module at column x, row y is dark. Coordinates
// outside the matrix are light.
func (m *Matrix) Dark(x, y int) bool {
	if x < 0 || y < 0 || x >= m.size || y >= m.size {
		return false
	}
	return m.modules[y*m.size+x]
}

// =============================================================================
// QR RENDERER
// =============================================================================

// QRRenderer is the default Renderer backed by rsc.io/qr.
type QRRenderer struct {
	Level Level
}

// New returns a renderer using error correction level M.
func New() *QRRenderer {
	return &QRRenderer{Level: LevelM}
}

// Render encodes payload as a QR symbol.
func (r *QRRenderer) Render(payload []byte) (*Matrix, error) {
	code, err := qr.Encode(string(payload), r.Level)
	if err != nil {
		return nil, &RenderError{PayloadSize: len(payload), Level: r.Level, Err: err}
	}

	m := &Matrix{size: code.Size, modules: make([]bool, code.Size*code.Size)}
	for y := 0; y < code.Size; y++ {
		for x := 0; x < code.Size; x++ {
			m.modules[y*code.Size+x] = code.Black(x, y)
		}
	}
	return m, nil
}
