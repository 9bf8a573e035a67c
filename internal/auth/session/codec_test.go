package session

import (
	"strings"
	"testing"
	"time"

	"github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/bwmarrin/snowflake"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec("test-session-secret-0123456789ab")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	p := domain.Principal{
		SubjectID: snowflake.ID(12345),
		Alias:     "alice",
		Roles:     []string{"member", "user"},
	}

	raw, expiresAt, err := codec.Issue(p, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	got, err := codec.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.SubjectID != p.SubjectID {
		t.Fatalf("expected subject %v, got %v", p.SubjectID, got.SubjectID)
	}
	if got.Alias != p.Alias {
		t.Fatalf("expected alias %q, got %q", p.Alias, got.Alias)
	}
	if len(got.Roles) != 2 || got.Roles[0] != "member" || got.Roles[1] != "user" {
		t.Fatalf("unexpected roles %v", got.Roles)
	}
}

func TestVerifyExpired(t *testing.T) {
	codec := newTestCodec(t)

	raw, _, err := codec.Issue(domain.Principal{SubjectID: snowflake.ID(1)}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := codec.Verify(raw); err != domain.ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	codec := newTestCodec(t)

	raw, _, err := codec.Issue(domain.Principal{SubjectID: snowflake.ID(1), Roles: []string{"user"}}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Flip a byte in the signature segment.
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := codec.Verify(tampered); err != domain.ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec("another-secret-entirely-87654321")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	raw, _, err := other.Issue(domain.Principal{SubjectID: snowflake.ID(1)}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := codec.Verify(raw); err != domain.ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	codec := newTestCodec(t)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := codec.Verify(raw); err != domain.ErrMalformedToken {
			t.Fatalf("token %q: expected ErrMalformedToken, got %v", raw, err)
		}
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec("  "); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
