package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cydxin/call-sdk/errs"
	"github.com/go-redis/redis/v8"
)

func TestAuthService_ExtractToken_BearerFirst(t *testing.T) {
	a := NewAuthService(nil)

	req := &http.Request{Header: make(http.Header), URL: &url.URL{RawQuery: "token=q"}}
	req.Header.Set("Authorization", "Bearer headerToken")

	got := a.ExtractToken(req)
	if got != "headerToken" {
		t.Fatalf("expected headerToken, got %q", got)
	}
}

func TestAuthService_ExtractToken_QueryFallback(t *testing.T) {
	a := NewAuthService(nil)

	u, _ := url.Parse("http://example.com/path?token=queryToken")
	req := &http.Request{Header: make(http.Header), URL: u}

	got := a.ExtractToken(req)
	if got != "queryToken" {
		t.Fatalf("expected queryToken, got %q", got)
	}
}

func TestAuthService_IssueAuthenticateRevoke(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a := NewAuthService(rdb)
	ctx := context.Background()

	tok, err := a.Tokens().Issue(ctx, 42, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !mr.Exists("im:token:" + tok) {
		t.Fatalf("token key not stored")
	}
	uid, err := a.Authenticate(ctx, tok)
	if err != nil || uid != 42 {
		t.Fatalf("Authenticate = %d, %v", uid, err)
	}

	if err := a.Tokens().Revoke(ctx, tok); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := a.Authenticate(ctx, tok); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("revoked token: expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthService_TokenExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a := NewAuthService(rdb)
	ctx := context.Background()

	tok, err := a.Tokens().Issue(ctx, 7, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := a.Authenticate(ctx, tok); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("expired token: expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthService_RevokeAll(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a := NewAuthService(rdb)
	ctx := context.Background()

	t1, _ := a.Tokens().Issue(ctx, 9, time.Hour)
	t2, _ := a.Tokens().Issue(ctx, 9, time.Hour)
	if err := a.Tokens().RevokeAll(ctx, 9); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	for _, tok := range []string{t1, t2} {
		if _, err := a.Authenticate(ctx, tok); err == nil {
			t.Fatalf("token %s still valid", tok)
		}
	}
}

func TestAuthService_MissingToken(t *testing.T) {
	a := NewAuthService(nil)
	if _, err := a.Authenticate(context.Background(), "  "); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
