package models

import (
	"testing"
	"time"

	"github.com/cydxin/call-sdk/cons"
)

func TestDecodePayloadDispatchesOnType(t *testing.T) {
	call := &CallPayload{
		ChannelName:   "call_1_2",
		CallerID:      1,
		CallType:      cons.CallTypeVideo,
		CallActive:    true,
		CallStartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
	data, err := EncodePayload(call)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	n := &Notification{ID: 1, Type: cons.NotificationCallVideo, Data: data}
	p, ok := n.CallPayload()
	if !ok {
		t.Fatalf("expected a call payload")
	}
	if p.ChannelName != "call_1_2" || !p.CallActive || !p.StartedAt().Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected payload %+v", p)
	}

	like := &Notification{ID: 2, Type: cons.NotificationLike, Data: []byte(`{"postId":9}`)}
	if _, ok := like.CallPayload(); ok {
		t.Fatalf("like notification must not decode as a call")
	}
	g, err := like.DecodePayload()
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if gp, ok := g.(GenericPayload); !ok || gp["postId"] != float64(9) {
		t.Fatalf("unexpected generic payload %#v", g)
	}
}

func TestDecodePayloadRejectsBadJSON(t *testing.T) {
	n := &Notification{ID: 3, Type: cons.NotificationCallVoice, Data: []byte(`{"callActive":`)}
	if _, err := n.DecodePayload(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestTablePrefix(t *testing.T) {
	defer SetTablePrefix("im_")

	SetTablePrefix("  ")
	if (Notification{}).TableName() != "im_notification" {
		t.Fatalf("blank prefix should be ignored")
	}
	SetTablePrefix("call_")
	if (LiveSession{}).TableName() != "call_live_session" {
		t.Fatalf("unexpected table name %s", (LiveSession{}).TableName())
	}
}
