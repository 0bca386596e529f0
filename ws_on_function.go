package call_sdk

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cydxin/call-sdk/cons"
	"github.com/cydxin/call-sdk/message"
	"github.com/cydxin/call-sdk/service"
	"go.uber.org/zap"
)

// bindWsHandlersOnMessage 上行消息分发，从 engine.go 抽出来避免臃肿
func (c *CallEngine) bindWsHandlersOnMessage() {
	c.WsServer.SetOnMessage(func(client *Client, msg []byte) {
		if client == nil {
			return
		}
		var typeProbe struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(msg, &typeProbe)

		switch typeProbe.Type {
		case message.WsTypePing:
			sendWsAck(client, "", nil)
		case message.WsTypeLiveWatch, message.WsTypeLiveUnwatch:
			var req message.LiveWatchReq
			if err := json.Unmarshal(msg, &req); err != nil || strings.TrimSpace(req.SessionID) == "" {
				sendWsAck(client, req.PacketID, errBadWsRequest)
				return
			}
			if typeProbe.Type == message.WsTypeLiveUnwatch {
				client.unwatch(req.SessionID)
				sendWsAck(client, req.PacketID, nil)
				return
			}
			sendWsAck(client, req.PacketID, c.watchLive(client, req.SessionID))
		default:
			c.log.Debug("unknown ws message", zap.Uint64("user_id", client.UserID), zap.String("type", typeProbe.Type))
		}
	})
}

// watchLive 把直播间状态流转发给这个连接；终态推送后自动退订
func (c *CallEngine) watchLive(client *Client, sessionID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	if !client.watch(sessionID, cancel) {
		cancel()
		return nil
	}
	states, err := c.LiveSessionService.Subscribe(ctx, sessionID)
	if err != nil {
		client.unwatch(sessionID)
		return err
	}
	go func() {
		defer client.unwatch(sessionID)
		for st := range states {
			b, err := json.Marshal(livePush(st))
			if err != nil {
				continue
			}
			client.trySend(b)
		}
	}()
	return nil
}

func livePush(st service.LiveSessionState) message.LiveStatePush {
	p := message.LiveStatePush{
		Type:        cons.EventLiveState,
		SessionID:   st.ID,
		OwnerID:     st.UserID,
		ChannelName: st.ChannelName,
		Title:       st.Title,
		IsActive:    st.IsActive,
		ViewerCount: st.ViewerCount,
	}
	if !st.IsActive {
		p.Type = cons.EventLiveEnded
		if st.EndedAt != nil {
			p.EndedAt = st.EndedAt.Unix()
		}
	}
	return p
}

type wsError string

func (e wsError) Error() string { return string(e) }

const errBadWsRequest = wsError("invalid request")

func sendWsAck(client *Client, packetID string, err error) {
	ack := message.Ack{Type: "ack", PacketID: packetID, OK: err == nil}
	if err != nil {
		ack.Error = err.Error()
	}
	b, _ := json.Marshal(ack)
	client.trySend(b)
}
