//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

var _ Embedder = (*ONNXEmbedder)(nil)

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ string, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *ONNXEmbedder) Name() string   { return "onnx" }
func (e *ONNXEmbedder) Dimension() int { return 0 }
func (e *ONNXEmbedder) Close() error   { return nil }

func (e *ONNXEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("ONNX embedder requires CGO")
}

func (e *ONNXEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errors.New("ONNX embedder requires CGO")
}
