package oauth2session

import (
	"testing"
	"time"
)

func TestTokensExpiry(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := Tokens{AccessToken: "A1", IssuedAt: issued, ExpiresIn: 3600}

	if tok.IsZero() {
		t.Fatal("token with access token must not be zero")
	}
	if got, want := tok.Lifetime(), time.Hour; got != want {
		t.Errorf("expected lifetime %s, got %s", want, got)
	}
	if got, want := tok.ExpiresAt(), issued.Add(time.Hour); !got.Equal(want) {
		t.Errorf("expected expiry %s, got %s", want, got)
	}

	if !(Tokens{}).IsZero() {
		t.Error("empty token set must be zero")
	}
}

func TestStoreExpiringWithin(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		tok      Tokens
		at       time.Duration // offset from issued
		margin   time.Duration
		expiring bool
	}{
		{
			name:     "empty store",
			tok:      Tokens{},
			margin:   5 * time.Minute,
			expiring: true,
		},
		{
			name:     "day token well before the margin",
			tok:      Tokens{AccessToken: "A", IssuedAt: issued, ExpiresIn: 86400},
			at:       86099 * time.Second,
			margin:   5 * time.Minute,
			expiring: false,
		},
		{
			name:     "day token at the margin boundary",
			tok:      Tokens{AccessToken: "A", IssuedAt: issued, ExpiresIn: 86400},
			at:       86100 * time.Second,
			margin:   5 * time.Minute,
			expiring: true,
		},
		{
			name:     "day token past expiry",
			tok:      Tokens{AccessToken: "A", IssuedAt: issued, ExpiresIn: 86400},
			at:       90000 * time.Second,
			margin:   5 * time.Minute,
			expiring: true,
		},
		{
			name:     "short token clamps the margin to half the lifetime",
			tok:      Tokens{AccessToken: "A", IssuedAt: issued, ExpiresIn: 60},
			at:       25 * time.Second,
			margin:   5 * time.Minute,
			expiring: false,
		},
		{
			name:     "short token inside the clamped margin",
			tok:      Tokens{AccessToken: "A", IssuedAt: issued, ExpiresIn: 60},
			at:       30 * time.Second,
			margin:   5 * time.Minute,
			expiring: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := issued.Add(tt.at)
			s := newStore(func() time.Time { return now })
			if !tt.tok.IsZero() {
				s.Replace(tt.tok)
			}

			if got := s.ExpiringWithin(tt.margin); got != tt.expiring {
				t.Errorf("ExpiringWithin(%s) at +%s = %v, want %v", tt.margin, tt.at, got, tt.expiring)
			}
		})
	}
}

func TestStoreSnapshotIsAtomic(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newStore(func() time.Time { return issued })

	if _, held, _ := s.Snapshot(time.Minute); held {
		t.Fatal("empty store must not report a held token")
	}

	s.Replace(Tokens{AccessToken: "A1", RefreshToken: "R1", IssuedAt: issued, ExpiresIn: 3600})
	tok, held, fresh := s.Snapshot(5 * time.Minute)
	if !held || !fresh {
		t.Fatalf("expected held and fresh, got held=%v fresh=%v", held, fresh)
	}
	if tok.AccessToken != "A1" || tok.RefreshToken != "R1" {
		t.Errorf("snapshot fields wrong: %+v", tok)
	}
}
