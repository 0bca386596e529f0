package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cydxin/call-sdk/errs"
	"github.com/cydxin/call-sdk/rtctoken"
)

// RtcTokenTTL 频道 token 有效期（秒），由媒体传输层强制
const RtcTokenTTL uint32 = 24 * 60 * 60

// RTC 角色（请求参数）
const (
	RtcRolePublisher  = "publisher"
	RtcRoleAudience   = "audience"
	RtcRoleSubscriber = "subscriber"
)

// RtcToken 下发给客户端的入会凭证，服务端不落库、不缓存
type RtcToken struct {
	Token       string `json:"token"`
	AppID       string `json:"appId"`
	ChannelName string `json:"channelName"`
	UID         uint32 `json:"uid"`
	Role        string `json:"role"`
	ExpiresAt   int64  `json:"expiresAt"` // 秒级时间戳 = 签发时间 + 86400
}

// RtcTokenService 无状态的 token 签发服务。
// 只要求调用方已登录，不做频道级鉴权：任何已登录用户都能为任意频道名申请 token。
type RtcTokenService struct {
	appID   string
	appCert string
	ttl     uint32
}

func NewRtcTokenService(appID, appCert string) *RtcTokenService {
	return &RtcTokenService{appID: strings.TrimSpace(appID), appCert: strings.TrimSpace(appCert), ttl: RtcTokenTTL}
}

// Configured appId 与证书是否都已配置
func (s *RtcTokenService) Configured() bool {
	return s != nil && s.appID != "" && s.appCert != ""
}

// ParseRtcRole 空串默认 publisher；audience/subscriber 均视为观众
func ParseRtcRole(role string) (rtctoken.Role, string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "", RtcRolePublisher:
		return rtctoken.RolePublisher, RtcRolePublisher, nil
	case RtcRoleAudience, RtcRoleSubscriber:
		return rtctoken.RoleSubscriber, RtcRoleAudience, nil
	default:
		return 0, "", fmt.Errorf("%w: unknown role %q", errs.ErrInvalidArgument, role)
	}
}

// Issue 签发频道 token。
// 错误：channelName 为空 -> ErrInvalidArgument；未配置凭证 -> ErrFailedPrecondition；签名失败 -> ErrInternal。
func (s *RtcTokenService) Issue(_ context.Context, channelName string, uid uint32, role string) (*RtcToken, error) {
	channelName = strings.TrimSpace(channelName)
	if channelName == "" {
		return nil, fmt.Errorf("%w: channelName is required", errs.ErrInvalidArgument)
	}
	if len(channelName) > rtctoken.MaxChannelNameLen {
		return nil, fmt.Errorf("%w: channelName longer than %d bytes", errs.ErrInvalidArgument, rtctoken.MaxChannelNameLen)
	}
	r, roleName, err := ParseRtcRole(role)
	if err != nil {
		return nil, err
	}
	if !s.Configured() {
		return nil, fmt.Errorf("%w: rtc app id / certificate not configured", errs.ErrFailedPrecondition)
	}

	at, tok, err := rtctoken.BuildRtcToken(s.appID, s.appCert, channelName, uid, r, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: build rtc token: %v", errs.ErrInternal, err)
	}
	return &RtcToken{
		Token:       tok,
		AppID:       s.appID,
		ChannelName: channelName,
		UID:         uid,
		Role:        roleName,
		ExpiresAt:   at.ExpiresAt().Unix(),
	}, nil
}
