package service

import (
	"sort"
	"strconv"
	"strings"
)

const (
	callChannelPrefix    = "call"
	channelNameDelimiter = "_"
)

// ChannelName 计算双方共用的 RTC 频道名。
// 已有会话/聊天 id 时直接使用；否则把两个 id 的十进制串按字典序排序后拼接，
// 无论谁发起，同一对用户得到的频道名都相同。纯函数，无随机、无时钟。
func ChannelName(existingSessionID string, a, b uint64) string {
	if existingSessionID != "" {
		return existingSessionID
	}
	return GroupChannelName("", a, b)
}

// GroupChannelName 多人版本：去重、排序后拼接
func GroupChannelName(existingSessionID string, ids ...uint64) string {
	if existingSessionID != "" {
		return existingSessionID
	}
	seen := make(map[string]struct{}, len(ids))
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		s := strconv.FormatUint(id, 10)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		parts = append(parts, s)
	}
	sort.Strings(parts)
	return callChannelPrefix + channelNameDelimiter + strings.Join(parts, channelNameDelimiter)
}
