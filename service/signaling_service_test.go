package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cydxin/call-sdk/cons"
	"github.com/cydxin/call-sdk/models"
)

// fakeInviteStore 内存版通知存储，最新追加的记录视为最新
type fakeInviteStore struct {
	mu          sync.Mutex
	rows        []*models.Notification
	nextID      uint64
	ticks       chan struct{}
	watchErr    error
	deactivated chan uint64
}

func newFakeInviteStore() *fakeInviteStore {
	return &fakeInviteStore{ticks: make(chan struct{}, 1), deactivated: make(chan uint64, 16)}
}

func (f *fakeInviteStore) tick() {
	select {
	case f.ticks <- struct{}{}:
	default:
	}
}

func (f *fakeInviteStore) addInvite(to, from uint64, callType, channel string, start time.Time) uint64 {
	p := &models.CallPayload{
		ChannelName:   channel,
		CallerID:      from,
		CallerName:    "caller",
		CallType:      callType,
		CallActive:    true,
		CallStartTime: start.UnixMilli(),
	}
	data, _ := json.Marshal(p)
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.rows = append(f.rows, &models.Notification{
		ID: id, UserID: to, FromUserID: from, Type: cons.NotificationTypeForCall(callType), Data: data,
	})
	f.mu.Unlock()
	f.tick()
	return id
}

func (f *fakeInviteStore) get(id uint64) *models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.ID == id {
			cp := *n
			return &cp
		}
	}
	return nil
}

func (f *fakeInviteStore) LatestActiveCall(_ context.Context, userID uint64) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rows) - 1; i >= 0; i-- {
		n := f.rows[i]
		if n.UserID != userID || !cons.IsCallType(n.Type) || n.IsRead {
			continue
		}
		if p, ok := n.CallPayload(); ok && p.CallActive {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeInviteStore) MarkRead(_ context.Context, userID uint64, ids ...uint64) error {
	f.mu.Lock()
	for _, n := range f.rows {
		for _, id := range ids {
			if n.ID == id && n.UserID == userID {
				n.IsRead = true
			}
		}
	}
	f.mu.Unlock()
	f.tick()
	return nil
}

func (f *fakeInviteStore) Deactivate(_ context.Context, _ uint64, id uint64) error {
	f.mu.Lock()
	for _, n := range f.rows {
		if n.ID != id {
			continue
		}
		p, _ := n.CallPayload()
		p.CallActive = false
		n.Data, _ = json.Marshal(p)
	}
	f.mu.Unlock()
	f.tick()
	select {
	case f.deactivated <- id:
	default:
	}
	return nil
}

func (f *fakeInviteStore) Watch(context.Context, uint64) (<-chan struct{}, func(), error) {
	if f.watchErr != nil {
		return nil, nil, f.watchErr
	}
	return f.ticks, func() {}, nil
}

func recvEvent(t *testing.T, ch <-chan CallEvent, wait time.Duration) (CallEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(wait):
		return CallEvent{}, false
	}
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestSignaling_FreshInviteEmittedOnce(t *testing.T) {
	store := newFakeInviteStore()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := store.addInvite(2, 1, cons.CallTypeVoice, "call_A_B", start)

	sig := NewSignalingService(store, nil, WithClock(fixedClock(start.Add(10*time.Second))))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := sig.Subscribe(ctx, 2)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ev, ok := recvEvent(t, events, time.Second)
	if !ok || ev.Kind != CallEventInvite {
		t.Fatalf("expected invite, got %#v (ok=%v)", ev, ok)
	}
	if ev.Invite.CallType != "voice" || ev.Invite.ChannelName != "call_A_B" || ev.Invite.NotificationID != id || ev.Invite.CallerID != 1 {
		t.Fatalf("unexpected invite: %#v", ev.Invite)
	}

	// 无关变更不会重复推送同一条邀请
	store.tick()
	if ev, ok := recvEvent(t, events, 100*time.Millisecond); ok {
		t.Fatalf("expected no further events, got %#v", ev)
	}
}

func TestSignaling_StaleInviteMarkedRead(t *testing.T) {
	store := newFakeInviteStore()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := store.addInvite(2, 1, cons.CallTypeVoice, "call_A_B", start)

	sig := NewSignalingService(store, nil, WithClock(fixedClock(start.Add(65*time.Second))))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := sig.Subscribe(ctx, 2)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if ev, ok := recvEvent(t, events, 150*time.Millisecond); ok {
		t.Fatalf("expected no invite for stale call, got %#v", ev)
	}
	if n := store.get(id); n == nil || !n.IsRead {
		t.Fatalf("stale invite should be marked read, got %#v", n)
	}
	select {
	case got := <-store.deactivated:
		if got != id {
			t.Fatalf("deactivated %d, want %d", got, id)
		}
	case <-time.After(time.Second):
		t.Fatalf("stale invite was not deactivated")
	}
}

func TestSignaling_WindowBoundary(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		age    time.Duration
		invite bool
	}{
		{0, true},
		{59999 * time.Millisecond, true},
		{60 * time.Second, false},
		{10 * time.Minute, false},
	}
	for _, tc := range cases {
		store := newFakeInviteStore()
		store.addInvite(2, 1, cons.CallTypeVideo, "call_1_2", start)
		sig := NewSignalingService(store, nil, WithClock(fixedClock(start.Add(tc.age))))
		ctx, cancel := context.WithCancel(context.Background())
		events, err := sig.Subscribe(ctx, 2)
		if err != nil {
			cancel()
			t.Fatalf("Subscribe: %v", err)
		}
		ev, ok := recvEvent(t, events, 100*time.Millisecond)
		got := ok && ev.Kind == CallEventInvite
		cancel()
		if got != tc.invite {
			t.Fatalf("age=%v: invite=%v, want %v", tc.age, got, tc.invite)
		}
	}
}

func TestSignaling_CallerCancelEmitsCancelled(t *testing.T) {
	store := newFakeInviteStore()
	start := time.Now()
	id := store.addInvite(2, 1, cons.CallTypeVoice, "call_1_2", start)

	sig := NewSignalingService(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := sig.Subscribe(ctx, 2)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if ev, ok := recvEvent(t, events, time.Second); !ok || ev.Kind != CallEventInvite {
		t.Fatalf("expected invite, got %#v", ev)
	}

	_ = store.Deactivate(context.Background(), 2, id)
	ev, ok := recvEvent(t, events, time.Second)
	if !ok || ev.Kind != CallEventCancelled {
		t.Fatalf("expected cancelled, got %#v (ok=%v)", ev, ok)
	}
}

func TestSignaling_LatestInviteWins(t *testing.T) {
	store := newFakeInviteStore()
	start := time.Now()
	store.addInvite(2, 1, cons.CallTypeVoice, "call_1_2", start)

	sig := NewSignalingService(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := sig.Subscribe(ctx, 2)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, ok := recvEvent(t, events, time.Second); !ok {
		t.Fatalf("expected first invite")
	}

	second := store.addInvite(2, 3, cons.CallTypeVideo, "call_2_3", start)
	ev, ok := recvEvent(t, events, time.Second)
	if !ok || ev.Kind != CallEventInvite || ev.Invite.NotificationID != second || ev.Invite.CallerID != 3 {
		t.Fatalf("expected invite from caller 3, got %#v", ev)
	}
}

func TestSignaling_SurfacedInviteExpires(t *testing.T) {
	store := newFakeInviteStore()
	id := store.addInvite(2, 1, cons.CallTypeVoice, "call_1_2", time.Now())

	sig := NewSignalingService(store, nil, WithInviteTTL(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := sig.Subscribe(ctx, 2)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if ev, ok := recvEvent(t, events, time.Second); !ok || ev.Kind != CallEventInvite {
		t.Fatalf("expected invite, got %#v", ev)
	}
	ev, ok := recvEvent(t, events, 2*time.Second)
	if !ok || ev.Kind != CallEventCancelled {
		t.Fatalf("expected cancelled after ttl, got %#v (ok=%v)", ev, ok)
	}
	if n := store.get(id); !n.IsRead {
		t.Fatalf("expired invite should be read")
	}
}

func TestSignaling_SubscribeFailureReportedOnce(t *testing.T) {
	store := newFakeInviteStore()
	store.watchErr = errors.New("redis down")
	sig := NewSignalingService(store, nil)
	if _, err := sig.Subscribe(context.Background(), 2); err == nil {
		t.Fatalf("expected subscribe error")
	}
}

func TestSignaling_ContextCancelClosesStream(t *testing.T) {
	store := newFakeInviteStore()
	sig := NewSignalingService(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	events, err := sig.Subscribe(ctx, 2)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatalf("expected closed stream")
		}
	case <-time.After(time.Second):
		t.Fatalf("stream not closed after cancel")
	}
}
