package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cydxin/call-sdk/errs"
	"github.com/go-redis/redis/v8"
)

// DefaultTokenTTL 登录 token 默认有效期
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService 登录态存储（Redis）。账号体系在外部，这里只负责 token -> userID。
// Key 与 IM 服务共用，同一个 token 可以同时访问两边：
// - im:token:{token} -> userID (String, TTL)
// - im:user_tokens:{userID} -> Set(token...)
type TokenService struct {
	rdb    *redis.Client
	prefix string
}

func NewTokenService(rdb *redis.Client) *TokenService {
	return &TokenService{rdb: rdb, prefix: "im:"}
}

func (s *TokenService) ensure() error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("%w: redis is not configured", errs.ErrFailedPrecondition)
	}
	return nil
}

func (s *TokenService) tokenKey(token string) string {
	return s.prefix + "token:" + token
}

func (s *TokenService) userTokensKey(userID uint64) string {
	return s.prefix + "user_tokens:" + strconv.FormatUint(userID, 10)
}

// Issue 为用户签发新 token（开发 / 运维工具使用，正式登录由账号服务负责）
func (s *TokenService) Issue(ctx context.Context, userID uint64, ttl time.Duration) (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	if userID == 0 {
		return "", fmt.Errorf("%w: user_id is required", errs.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%w: generate token: %v", errs.ErrInternal, err)
	}
	token := hex.EncodeToString(b)

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.tokenKey(token), strconv.FormatUint(userID, 10), ttl)
	pipe.SAdd(ctx, s.userTokensKey(userID), token)
	pipe.Expire(ctx, s.userTokensKey(userID), ttl+24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%w: store token: %v", errs.ErrInternal, err)
	}
	return token, nil
}

// UserID token -> userID；不存在或格式错误返回 ErrUnauthenticated
func (s *TokenService) UserID(ctx context.Context, token string) (uint64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	val, err := s.rdb.Get(ctx, s.tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("%w: token expired or revoked", errs.ErrUnauthenticated)
		}
		return 0, fmt.Errorf("%w: lookup token: %v", errs.ErrInternal, err)
	}
	uid, err := strconv.ParseUint(val, 10, 64)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("%w: malformed token record", errs.ErrUnauthenticated)
	}
	return uid, nil
}

// Revoke 注销单个 token
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	uid, err := s.UserID(ctx, token)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.tokenKey(token))
	if err == nil {
		pipe.SRem(ctx, s.userTokensKey(uid), token)
	}
	_, execErr := pipe.Exec(ctx)
	return execErr
}

// RevokeAll 注销用户全部 token
func (s *TokenService) RevokeAll(ctx context.Context, userID uint64) error {
	if err := s.ensure(); err != nil {
		return err
	}
	tokens, err := s.rdb.SMembers(ctx, s.userTokensKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, t := range tokens {
		pipe.Del(ctx, s.tokenKey(t))
	}
	pipe.Del(ctx, s.userTokensKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
