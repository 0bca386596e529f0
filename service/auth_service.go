package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cydxin/call-sdk/errs"
	"github.com/go-redis/redis/v8"
)

// AuthService 鉴权核心能力，gin 中间件和 WS 握手共用：
// - 解析 token（Bearer 优先，其次 query）
// - 校验 token -> userID（Redis）
type AuthService struct {
	token *TokenService
}

func NewAuthService(rdb *redis.Client) *AuthService {
	return &AuthService{token: NewTokenService(rdb)}
}

// Tokens 底层 token 存储
func (a *AuthService) Tokens() *TokenService {
	return a.token
}

// ExtractToken 从 HTTP 请求中提取 token：优先 Authorization: Bearer，其次 query: token。
func (a *AuthService) ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	return extractToken(r.Header.Get("Authorization"), r.URL.Query().Get("token"))
}

func extractToken(header, query string) string {
	ah := strings.TrimSpace(header)
	if ah != "" {
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t
			}
		}
	}
	return strings.TrimSpace(query)
}

// Authenticate 根据 token 获取 userID
func (a *AuthService) Authenticate(ctx context.Context, token string) (uint64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("%w: missing token", errs.ErrUnauthenticated)
	}
	return a.token.UserID(ctx, token)
}

// AuthenticateRequest 从请求里抽 token 并鉴权
func (a *AuthService) AuthenticateRequest(ctx context.Context, r *http.Request) (uint64, string, error) {
	t := a.ExtractToken(r)
	uid, err := a.Authenticate(ctx, t)
	return uid, t, err
}
