package sqlscan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeScan(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 15, 123456000, time.UTC)

	tests := []struct {
		name string
		src  any
		want time.Time
	}{
		{name: "time", src: want, want: want},
		{name: "bytes", src: []byte("2024-05-01 10:30:15.123456"), want: want},
		{name: "string", src: "2024-05-01 10:30:15.123456", want: want},
		{name: "milliseconds", src: "2024-05-01 10:30:15.123", want: want.Truncate(time.Millisecond)},
		{name: "seconds", src: "2024-05-01 10:30:15", want: want.Truncate(time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Time
			require.NoError(t, Time(&got).Scan(tt.src))
			require.True(t, tt.want.Equal(got), "expected %v, got %v", tt.want, got)
		})
	}
}

func TestTimeScanRejects(t *testing.T) {
	var got time.Time
	require.ErrorIs(t, Time(&got).Scan(int64(1)), ErrInvalidTime)
	require.ErrorIs(t, Time(&got).Scan(nil), ErrInvalidTime)
	require.ErrorIs(t, Time(&got).Scan("yesterday"), ErrInvalidTime)
}
