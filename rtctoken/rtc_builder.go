package rtctoken

import (
	"errors"
	"strconv"
)

// MaxChannelNameLen 频道名最大字节数（传输层限制，长度字段为 uint16）
const MaxChannelNameLen = 64

var ErrChannelNameTooLong = errors.New("rtctoken: channel name too long")

// Role 频道内角色
type Role int

const (
	RolePublisher  Role = 1 // 可推流
	RoleSubscriber Role = 2 // 只拉流（观众）
)

// BuildRtcToken 按 uid 生成频道 token。uid=0 时 token 内 uid 为空串，由传输层分配。
// expire 同时作为 token 与各项权限的有效期（秒）。
func BuildRtcToken(appID, appCert, channelName string, uid uint32, role Role, expire uint32) (*AccessToken, string, error) {
	if len(channelName) > MaxChannelNameLen {
		return nil, "", ErrChannelNameTooLong
	}
	t, err := NewAccessToken(appID, appCert, expire)
	if err != nil {
		return nil, "", err
	}
	uidStr := ""
	if uid != 0 {
		uidStr = strconv.FormatUint(uint64(uid), 10)
	}
	s := NewRtcService(channelName, uidStr)
	s.AddPrivilege(PrivilegeJoinChannel, expire)
	if role == RolePublisher {
		s.AddPrivilege(PrivilegePublishAudio, expire)
		s.AddPrivilege(PrivilegePublishVideo, expire)
		s.AddPrivilege(PrivilegePublishData, expire)
	}
	t.AddService(s)
	tok, err := t.Build()
	if err != nil {
		return nil, "", err
	}
	return t, tok, nil
}
