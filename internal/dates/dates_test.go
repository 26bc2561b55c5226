package dates

import (
	"testing"
	"time"
)

func TestIsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{in: "", want: false},
		{in: "null", want: false},
		{in: "undefined", want: false},
		{in: "garbage", want: false},
		{in: "2019-12-31T23:59:59Z", want: false},
		{in: "0001-01-01T00:00:00Z", want: false},
		{in: "2020-01-01", want: true},
		{in: "2024-06-01T10:00:00Z", want: true},
		{in: "2024-06-01T10:00:00.123456Z", want: true},
		{in: "2024-06-01T10:00:00+02:00", want: true},
		{in: "2024-06-01T10:00:00", want: true},
		{in: "2024-06-01 10:00:00", want: true},
	}
	for _, tt := range tests {
		if got := IsValid(tt.in); got != tt.want {
			t.Fatalf("IsValid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBestDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		published string
		updated   string
		created   string
		isPub     bool
		want      string
	}{
		{
			name:      "published valid",
			published: "2024-06-01T10:00:00Z",
			updated:   "2024-06-02T10:00:00Z",
			created:   "2024-05-30T10:00:00Z",
			isPub:     true,
			want:      "2024-06-01T10:00:00Z",
		},
		{
			name:      "published invalid falls to created even before updated",
			published: "null",
			updated:   "2024-06-02T10:00:00Z",
			created:   "2024-05-30T10:00:00Z",
			isPub:     true,
			want:      "2024-05-30T10:00:00Z",
		},
		{
			name:      "published flag with unparseable created still returns created",
			published: "",
			updated:   "",
			created:   "not-a-date",
			isPub:     true,
			want:      "not-a-date",
		},
		{
			name:      "draft skips invalid published and uses updated",
			published: "1970-01-01T00:00:00Z",
			updated:   "2024-06-02T10:00:00Z",
			created:   "2024-05-30T10:00:00Z",
			isPub:     false,
			want:      "2024-06-02T10:00:00Z",
		},
		{
			name:      "draft uses created last",
			published: "undefined",
			updated:   "",
			created:   "2024-05-30",
			isPub:     false,
			want:      "2024-05-30",
		},
		{
			name:  "everything invalid returns now",
			isPub: false,
			want:  "2025-07-01T12:00:00Z",
		},
		{
			name:      "published with empty created falls through",
			published: "null",
			updated:   "2024-06-02T10:00:00Z",
			isPub:     true,
			want:      "2024-06-02T10:00:00Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := BestDate(tt.published, tt.updated, tt.created, tt.isPub, now)
			if got != tt.want {
				t.Fatalf("BestDate = %q, want %q", got, tt.want)
			}
		})
	}
}
