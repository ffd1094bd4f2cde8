package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
	}{
		{"axis", []float32{3, 0, 0}},
		{"mixed", []float32{3, 4}},
		{"negative", []float32{-1, -1, -1, -1}},
		{"tiny", []float32{1e-20, 1e-20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := append([]float32(nil), tt.in...)
			NormalizeL2(v)
			if n := L2Norm(v); math.Abs(n-1) > 1e-6 {
				t.Errorf("norm = %v, want 1", n)
			}
		})
	}
}

func TestNormalizeL2_ZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	NormalizeL2(v)
	for i, x := range v {
		if x != 0 {
			t.Errorf("v[%d] = %v, want 0", i, x)
		}
	}
}

func TestFloat64sToFloat32s(t *testing.T) {
	out := Float64sToFloat32s([]float64{0.5, -1.25})
	if len(out) != 2 || out[0] != 0.5 || out[1] != -1.25 {
		t.Errorf("got %v", out)
	}
}
