package state

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/proxyjohn/internal/security/secretbox"
)

func initSecretbox(t *testing.T) {
	t.Helper()
	secretbox.UnsafeResetSecretBoxForTests()
	k := make([]byte, 32)
	if _, err := rand.Read(k); err != nil {
		t.Fatalf("rand: %v", err)
	}
	if err := secretbox.UnsafeSetMasterKeyForTests(k); err != nil {
		t.Fatalf("seteando clave de test: %v", err)
	}
	t.Cleanup(secretbox.UnsafeResetSecretBoxForTests)
}

func TestSealedRoundTrip(t *testing.T) {
	initSecretbox(t)
	c := NewSealedCodec()
	ctx := context.Background()

	raw, err := c.Issue(ctx, "acme", Params{
		UserID:      "u-1",
		RedirectURL: "https://app.test/done",
		Extra:       map[string]string{"tenant": "t-9"},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	p, err := c.Validate(ctx, "acme", raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.UserID != "u-1" || p.RedirectURL != "https://app.test/done" || p.Extra["tenant"] != "t-9" {
		t.Fatalf("params = %+v", p)
	}
}

func TestSealedWrongProvider(t *testing.T) {
	initSecretbox(t)
	c := NewSealedCodec()
	ctx := context.Background()

	raw, _ := c.Issue(ctx, "acme", Params{UserID: "u-1"})
	if _, err := c.Validate(ctx, "globex", raw); !errors.Is(err, ErrTamperDetected) {
		t.Fatalf("err = %v, quería ErrTamperDetected", err)
	}
}

func TestSealedTamper(t *testing.T) {
	initSecretbox(t)
	c := NewSealedCodec()
	ctx := context.Background()

	raw, _ := c.Issue(ctx, "acme", Params{UserID: "u-1"})
	mutated := []byte(raw)
	mutated[len(mutated)-2] ^= 0x01
	if _, err := c.Validate(ctx, "acme", string(mutated)); !errors.Is(err, ErrTamperDetected) {
		t.Fatalf("err = %v, quería ErrTamperDetected", err)
	}
}

func TestSealedExpiry(t *testing.T) {
	initSecretbox(t)
	c := NewSealedCodec()
	ctx := context.Background()

	base := time.Now().UTC()
	c.now = func() time.Time { return base }
	raw, err := c.Issue(ctx, "acme", Params{UserID: "u-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c.now = func() time.Time { return base.Add(TTL + 30*time.Second) }
	if _, err := c.Validate(ctx, "acme", raw); err != nil {
		t.Fatalf("dentro del skew: %v", err)
	}

	c.now = func() time.Time { return base.Add(TTL + ClockSkew + time.Second) }
	if _, err := c.Validate(ctx, "acme", raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, quería ErrExpired", err)
	}
}

func TestSealedRejectsEmptyUserID(t *testing.T) {
	initSecretbox(t)
	c := NewSealedCodec()
	if _, err := c.Issue(context.Background(), "acme", Params{}); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("err = %v, quería ErrMissingUserID", err)
	}
}
