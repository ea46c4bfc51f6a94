package service

import "testing"

func TestToCents(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{500, 500_00},
		{199.99, 199_99},
		{0.1, 10},
	}
	for _, tt := range tests {
		if got := ToCents(tt.in); got != tt.want {
			t.Errorf("ToCents(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
