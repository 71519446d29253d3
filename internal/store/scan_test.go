package store

import (
	"testing"
	"time"
)

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2025, 7, 19, 4, 0, 0, 0, time.UTC)
	bucharest := time.FixedZone("EEST", 3*3600)

	tests := []struct {
		name    string
		in      any
		want    time.Time
		valid   bool
		wantErr bool
	}{
		{name: "stored text", in: formatTime(want), want: want, valid: true},
		{name: "driver time", in: want.In(bucharest), want: want, valid: true},
		{name: "rfc3339 text", in: "2025-07-19T07:00:00+03:00", want: want, valid: true},
		{name: "bytes", in: []byte(formatTime(want)), want: want, valid: true},
		{name: "sqlite datetime", in: "2025-07-19 04:00:00", want: want, valid: true},
		{name: "date only", in: "1983-03-15", want: time.Date(1983, 3, 15, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "null", in: nil},
		{name: "empty", in: ""},
		{name: "garbage", in: "soon", wantErr: true},
		{name: "number", in: int64(5), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got dbTime
			err := got.Scan(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got.Valid != tt.valid || !got.Time.Equal(tt.want) {
				t.Errorf("Scan(%v) = %+v, want %v valid=%v", tt.in, got, tt.want, tt.valid)
			}
			if got.Valid && got.Time.Location() != time.UTC {
				t.Errorf("location = %v, want UTC", got.Time.Location())
			}
		})
	}
}

func TestDBDayScan(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want dbDay
	}{
		{name: "text", in: "2025-07-19", want: "2025-07-19"},
		{name: "driver time", in: time.Date(2025, 7, 19, 0, 0, 0, 0, time.UTC), want: "2025-07-19"},
		{name: "bytes", in: []byte("2025-07-18"), want: "2025-07-18"},
		{name: "null", in: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got dbDay
			if err := got.Scan(tt.in); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if got != tt.want {
				t.Errorf("Scan(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
