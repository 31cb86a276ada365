package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPatternModeratorBlocksBlocklistedContent(t *testing.T) {
	moderator, errNew := NewPatternModerator()
	if errNew != nil {
		t.Fatalf("new: %v", errNew)
	}

	result, errModerate := moderator.Moderate(context.Background(), "# Notes\n\nbuy viagra now")
	if errModerate != nil {
		t.Fatalf("moderate: %v", errModerate)
	}
	if result.Safe {
		t.Fatal("expected blocked verdict")
	}
	if result.Reason == "" {
		t.Fatal("expected a reason on block")
	}
}

func TestPatternModeratorPassesPlainMarkdown(t *testing.T) {
	moderator, errNew := NewPatternModerator()
	if errNew != nil {
		t.Fatalf("new: %v", errNew)
	}

	result, errModerate := moderator.Moderate(context.Background(), "# Hello\n\nsome *markdown* text")
	if errModerate != nil {
		t.Fatalf("moderate: %v", errModerate)
	}
	if !result.Safe {
		t.Fatalf("expected safe verdict, got reason %q", result.Reason)
	}
}

func TestPatternModeratorExtraPattern(t *testing.T) {
	moderator, errNew := NewPatternModerator(`(?i)\bforbidden\b`)
	if errNew != nil {
		t.Fatalf("new: %v", errNew)
	}

	result, _ := moderator.Moderate(context.Background(), "this word is Forbidden here")
	if result.Safe {
		t.Fatal("expected extra pattern to block")
	}

	if _, errBad := NewPatternModerator(`([`); errBad == nil {
		t.Fatal("expected invalid pattern to fail")
	}
}

func TestHTTPModeratorParsesVerdict(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"safe": false, "reason": "spam"}`))
	}))
	defer server.Close()

	moderator := NewHTTPModerator(server.URL, "secret", time.Second)
	result, errModerate := moderator.Moderate(context.Background(), "anything")
	if errModerate != nil {
		t.Fatalf("moderate: %v", errModerate)
	}
	if result.Safe || result.Reason != "spam" {
		t.Fatalf("result = %+v", result)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestHTTPModeratorTruncatesInput(t *testing.T) {
	var gotLen int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text string `json:"text"`
		}
		if errDecode := decodeJSONBody(r, &payload); errDecode != nil {
			t.Errorf("decode: %v", errDecode)
		}
		gotLen = len(payload.Text)
		_, _ = w.Write([]byte(`{"safe": true}`))
	}))
	defer server.Close()

	moderator := NewHTTPModerator(server.URL, "", time.Second)
	if _, errModerate := moderator.Moderate(context.Background(), strings.Repeat("a", maxInspectBytes*3)); errModerate != nil {
		t.Fatalf("moderate: %v", errModerate)
	}
	if gotLen != maxInspectBytes {
		t.Fatalf("inspected length = %d, want %d", gotLen, maxInspectBytes)
	}
}

func TestHTTPModeratorNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	moderator := NewHTTPModerator(server.URL, "", time.Second)
	if _, errModerate := moderator.Moderate(context.Background(), "anything"); errModerate == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestFallbackUsesSecondaryOnPrimaryError(t *testing.T) {
	primary := moderatorFunc(func(context.Context, string) (Result, error) {
		return Result{}, errors.New("down")
	})
	secondary := moderatorFunc(func(context.Context, string) (Result, error) {
		return Result{Safe: false, Reason: "fallback"}, nil
	})

	chain := &Fallback{Primary: primary, Secondary: secondary}
	result, errModerate := chain.Moderate(context.Background(), "anything")
	if errModerate != nil {
		t.Fatalf("moderate: %v", errModerate)
	}
	if result.Safe || result.Reason != "fallback" {
		t.Fatalf("result = %+v", result)
	}
}

func TestFallbackPrimaryVerdictWins(t *testing.T) {
	primary := moderatorFunc(func(context.Context, string) (Result, error) {
		return Result{Safe: true}, nil
	})
	secondary := moderatorFunc(func(context.Context, string) (Result, error) {
		return Result{Safe: false, Reason: "never"}, nil
	})

	chain := &Fallback{Primary: primary, Secondary: secondary}
	result, errModerate := chain.Moderate(context.Background(), "anything")
	if errModerate != nil {
		t.Fatalf("moderate: %v", errModerate)
	}
	if !result.Safe {
		t.Fatal("primary verdict must win")
	}
}

type moderatorFunc func(ctx context.Context, text string) (Result, error)

func (f moderatorFunc) Moderate(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

func decodeJSONBody(r *http.Request, out any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(out)
}
