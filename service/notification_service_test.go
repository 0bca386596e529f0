package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newNotificationService(t *testing.T) (*NotificationService, sqlmock.Sqlmock, *redis.Client) {
	t.Helper()
	gormDB, mock, sqlDB := newMockDB(t)
	t.Cleanup(func() { _ = sqlDB.Close() })
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := NewNotificationService(&Service{DB: gormDB, RDB: rdb, TablePrefix: "im_"})
	svc.Now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return svc, mock, rdb
}

// 重复标记已读：第二次影响 0 行，不报错，也不再发变化通知
func TestNotificationService_MarkReadTwice(t *testing.T) {
	svc, mock, rdb := newNotificationService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps := rdb.Subscribe(ctx, notifyChannel(2))
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	msgs := ps.Channel()

	mock.ExpectExec(markReadRe).WithArgs(true, sqlmock.AnyArg(), 2, 7, false).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(markReadRe).WithArgs(true, sqlmock.AnyArg(), 2, 7, false).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := svc.MarkRead(ctx, 2, 7); err != nil {
		t.Fatalf("first MarkRead: %v", err)
	}
	select {
	case m := <-msgs:
		if m.Payload != "1" {
			t.Fatalf("unexpected change payload %q", m.Payload)
		}
	case <-ctx.Done():
		t.Fatalf("first MarkRead should publish a change")
	}

	if err := svc.MarkRead(ctx, 2, 7); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	// 同一连接上的发布按顺序到达：下一条必须是这里发的标记，说明第二次没有发布
	if err := rdb.Publish(ctx, notifyChannel(2), "marker").Err(); err != nil {
		t.Fatalf("publish marker: %v", err)
	}
	select {
	case m := <-msgs:
		if m.Payload != "marker" {
			t.Fatalf("second MarkRead published %q", m.Payload)
		}
	case <-ctx.Done():
		t.Fatalf("marker not received")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestNotificationService_MarkReadNoIDs(t *testing.T) {
	svc, mock, _ := newNotificationService(t)
	if err := svc.MarkRead(context.Background(), 2); err != nil {
		t.Fatalf("MarkRead without ids: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL expected: %v", err)
	}
}
