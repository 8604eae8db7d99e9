package reqctx

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestWithRequestContext(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "https://detail.1688.com/offer/1.html")
	rc := GetRequestContext(ctx)

	if _, err := uuid.Parse(rc.RequestID); err != nil {
		t.Errorf("Expected a UUID, got %q", rc.RequestID)
	}
	if rc.URL != "https://detail.1688.com/offer/1.html" {
		t.Errorf("unexpected url %q", rc.URL)
	}

	other := GetRequestContext(WithRequestContext(context.Background(), ""))
	if other.RequestID == rc.RequestID {
		t.Error("Expected distinct request IDs")
	}
}

func TestGetRequestContext_Missing(t *testing.T) {
	if rc := GetRequestContext(context.Background()); rc.RequestID != "unknown" {
		t.Errorf("Expected unknown, got %q", rc.RequestID)
	}
}

func TestNewRequestError(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "")
	base := errors.New("boom")

	err := NewRequestError(ctx, base)
	if !errors.Is(err, base) {
		t.Error("Expected wrapped error to match base")
	}
	if !strings.Contains(err.Error(), GetRequestContext(ctx).RequestID) {
		t.Errorf("Expected request id in %q", err.Error())
	}
	if NewRequestError(ctx, nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	ctx := WithRequestContext(context.Background(), "https://x/offer/9.html")
	l := Logger(ctx)
	l.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, GetRequestContext(ctx).RequestID) || !strings.Contains(out, "offer/9.html") {
		t.Errorf("Expected request fields in log line, got %s", out)
	}
}
