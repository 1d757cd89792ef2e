package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKellyFraction(t *testing.T) {
	tests := []struct {
		name    string
		winRate float64
		avgWin  float64
		avgLoss float64
		want    float64
		wantOK  bool
	}{
		{name: "reference case", winRate: 0.6, avgWin: 0.03, avgLoss: 0.015, want: 0.4, wantOK: true},
		{name: "zero avg loss", winRate: 0.6, avgWin: 0.03, avgLoss: 0, want: 0, wantOK: false},
		{name: "zero avg win", winRate: 0.6, avgWin: 0, avgLoss: 0.01, want: 0, wantOK: false},
		{name: "negative edge", winRate: 0.3, avgWin: 0.01, avgLoss: 0.01, want: -0.4, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KellyFraction(tt.winRate, tt.avgWin, tt.avgLoss)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 1.0, Confidence(0.9, 0.8, 45))
	assert.Equal(t, 0.0, Confidence(0, 0, 0))
	// 0.4*0.73/0.75 + 0.4*0.38/0.5 + 0.2*1 = 0.3893 + 0.304 + 0.2
	assert.Equal(t, 0.89, Confidence(0.73, 0.38, 45))
	assert.Less(t, Confidence(0.6, -0.5, 10), Confidence(0.6, 0, 10))
}

func TestStats(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-12)
	assert.Equal(t, 0.0, StdDev([]float64{4, 4, 4}))
}

func TestClampAndRound(t *testing.T) {
	assert.Equal(t, 0.05, Clamp(0.1, 0, 0.05))
	assert.Equal(t, 0.0, Clamp(-1, 0, 0.05))
	assert.Equal(t, 1234.57, Round(1234.5678, 2))
	assert.Equal(t, 0.1235, Round(0.12345, 4))
	assert.Equal(t, 3.0, WinLossRatio(0.03, -0.01))
}
