package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			result := session.IsExpired()
			if result != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"alice@example.com", "alice@example.com"},
		{"Alice@Example.COM", "alice@example.com"},
		{"  bob@example.com ", "bob@example.com"},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.input); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSchoolYearLabel(t *testing.T) {
	c := Classroom{SchoolYearStart: 2024}
	if got := c.SchoolYearLabel(); got != "2024-2025" {
		t.Errorf("SchoolYearLabel() = %q, want %q", got, "2024-2025")
	}
}

func TestRelationshipKindValid(t *testing.T) {
	for _, kind := range RelationshipKinds {
		if !kind.Valid() {
			t.Errorf("%q should be valid", kind)
		}
	}
	for _, kind := range []RelationshipKind{"", "uncle", "Mother"} {
		if kind.Valid() {
			t.Errorf("%q should be invalid", kind)
		}
	}
}

func TestEventTypeValid(t *testing.T) {
	for _, et := range EventTypes {
		if !et.Valid() {
			t.Errorf("%q should be valid", et)
		}
	}
	if EventType("party").Valid() {
		t.Error("party should be invalid")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "plain date", input: "2024-09-20", want: Date(2024, time.September, 20)},
		{name: "trailing text", input: "2024-09-20junk", wantErr: true},
		{name: "timestamp", input: "2024-09-20T00:00:00Z", wantErr: true},
		{name: "too short", input: "2024-09", wantErr: true},
		{name: "bad day", input: "2024-02-30", wantErr: true},
		{name: "garbage", input: "not-a-date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestScanDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "plain date", input: "2024-09-20", want: Date(2024, time.September, 20)},
		{name: "rfc3339 from driver", input: "2024-09-20T00:00:00Z", want: Date(2024, time.September, 20)},
		{name: "sqlite datetime", input: "2024-09-20 00:00:00", want: Date(2024, time.September, 20)},
		{name: "too short", input: "2024-09", wantErr: true},
		{name: "garbage", input: "not-a-date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScanDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ScanDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ScanDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if got := FormatDate(Date(2024, time.January, 5)); got != "2024-01-05" {
		t.Errorf("FormatDate() = %q", got)
	}
}
