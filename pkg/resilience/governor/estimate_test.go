package governor

import (
	"bytes"
	"testing"

	"github.com/dbadmin-ai/governor/internal/testutil"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    float64
	}{
		{"empty uses default", nil, DefaultEstimate},
		{"zero length uses default", []byte{}, DefaultEstimate},
		{"one byte", []byte("a"), 1},
		{"exactly one token", []byte("abcd"), 1},
		{"rounds up", []byte("abcde"), 2},
		{"kilobyte", bytes.Repeat([]byte("x"), 1000), 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, EstimateTokens(tt.payload), tt.want)
		})
	}
}
