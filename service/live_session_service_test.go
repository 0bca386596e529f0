package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/cydxin/call-sdk/errs"
	"github.com/go-redis/redis/v8"
	"github.com/go-sql-driver/mysql"
)

var liveColumns = []string{"id", "user_id", "channel_name", "title", "is_active", "viewer_count", "created_at", "updated_at", "ended_at"}

const (
	liveSelectRe = "SELECT \\* FROM `im_live_session` WHERE id = \\? ORDER BY `im_live_session`.`id` LIMIT \\?"
	liveIncrRe   = "UPDATE `im_live_session` SET `viewer_count`=viewer_count \\+ \\? WHERE id = \\? AND is_active = \\?"
	liveDecrRe   = "UPDATE `im_live_session` SET `viewer_count`=viewer_count - \\? WHERE id = \\? AND is_active = \\? AND viewer_count > \\?"
	liveEndRe    = "UPDATE `im_live_session` SET `active_owner`=\\?,`ended_at`=\\?,`is_active`=\\?,`updated_at`=\\? WHERE id = \\? AND is_active = \\?"
)

func liveRow(id string, owner uint64, active bool, viewers int64, endedAt *time.Time) *sqlmock.Rows {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ended any
	if endedAt != nil {
		ended = *endedAt
	}
	return sqlmock.NewRows(liveColumns).AddRow(id, owner, "live_"+id, "title", active, viewers, created, created, ended)
}

func expectLiveSelect(mock sqlmock.Sqlmock, id string, active bool, viewers int64, endedAt *time.Time) {
	mock.ExpectQuery(liveSelectRe).WithArgs(id, 1).WillReturnRows(liveRow(id, 7, active, viewers, endedAt))
}

func newLiveService(t *testing.T, withRedis bool) (*LiveSessionService, sqlmock.Sqlmock, func()) {
	t.Helper()
	gormDB, mock, sqlDB := newMockDB(t)
	base := &Service{DB: gormDB, TablePrefix: "im_"}
	if withRedis {
		mr := miniredis.RunT(t)
		base.RDB = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}
	return NewLiveSessionService(base), mock, func() { _ = sqlDB.Close() }
}

func TestLiveSession_CreateRejectsSecondActive(t *testing.T) {
	svc, mock, done := newLiveService(t, false)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `im_live_session` WHERE user_id = \\? AND is_active = \\?").
		WithArgs(uint64(7), true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	if _, err := svc.Create(context.Background(), 7, "", "again"); !errors.Is(err, errs.ErrAlreadyLive) {
		t.Fatalf("expected ErrAlreadyLive, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 两个并发开播都通过了计数检查，后插入的那个撞上 active_owner 唯一索引
func TestLiveSession_CreateConcurrentInsertConflict(t *testing.T) {
	svc, mock, done := newLiveService(t, false)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `im_live_session`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `im_live_session` .*`active_owner`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7' for key 'uk_live_active_owner'"})
	mock.ExpectRollback()

	if _, err := svc.Create(context.Background(), 7, "", "race"); !errors.Is(err, errs.ErrAlreadyLive) {
		t.Fatalf("expected ErrAlreadyLive, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLiveSession_CreateMultipleAllowedLeavesOwnerSlotEmpty(t *testing.T) {
	svc, mock, done := newLiveService(t, false)
	defer done()
	svc.AllowMultipleLive = true

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `im_live_session`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sess, err := svc.Create(context.Background(), 7, "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ActiveOwner != nil {
		t.Fatalf("active owner must stay NULL when multiple lives are allowed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLiveSession_CreateDefaultsChannelName(t *testing.T) {
	svc, mock, done := newLiveService(t, false)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `im_live_session`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `im_live_session`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sess, err := svc.Create(context.Background(), 7, "", " hello ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ChannelName != "live_7" || sess.Title != "hello" || !sess.IsActive || sess.ViewerCount != 0 || sess.ID == "" {
		t.Fatalf("unexpected session: %#v", sess)
	}
	if sess.ActiveOwner == nil || *sess.ActiveOwner != 7 {
		t.Fatalf("active owner should hold the owner id while live, got %v", sess.ActiveOwner)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLiveSession_LeaveNeverBelowZero(t *testing.T) {
	svc, mock, done := newLiveService(t, false)
	defer done()

	// 计数已为 0：带 viewer_count > 0 条件的更新影响 0 行
	mock.ExpectExec(liveDecrRe).WithArgs(1, "s1", true, 0).WillReturnResult(sqlmock.NewResult(0, 0))
	// 不存在的直播同样是 no-op
	mock.ExpectExec(liveDecrRe).WithArgs(1, "missing", true, 0).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := svc.Leave(context.Background(), "s1"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if err := svc.Leave(context.Background(), "missing"); err != nil {
		t.Fatalf("Leave missing: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLiveSession_JoinMissing(t *testing.T) {
	svc, mock, done := newLiveService(t, false)
	defer done()

	mock.ExpectExec(liveIncrRe).WithArgs(1, "nope", true).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(liveSelectRe).WithArgs("nope", 1).WillReturnRows(sqlmock.NewRows(liveColumns))

	if _, err := svc.Join(context.Background(), "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLiveSession_EndIdempotent(t *testing.T) {
	svc, mock, done := newLiveService(t, false)
	defer done()
	ended := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	// 第一次：写入终态
	expectLiveSelect(mock, "s1", true, 2, nil)
	mock.ExpectExec(liveEndRe).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLiveSelect(mock, "s1", false, 2, &ended)
	// 第二次：已结束，不再写 ended_at
	expectLiveSelect(mock, "s1", false, 2, &ended)

	if err := svc.End(context.Background(), "s1", 7); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := svc.End(context.Background(), "s1", 7); err != nil {
		t.Fatalf("End twice: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLiveSession_EndByNonOwner(t *testing.T) {
	svc, mock, done := newLiveService(t, false)
	defer done()

	expectLiveSelect(mock, "s1", true, 0, nil)
	if err := svc.End(context.Background(), "s1", 99); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestLiveSession_JoinLeaveEndStream(t *testing.T) {
	svc, mock, done := newLiveService(t, true)
	defer done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ended := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	// Subscribe 的初始快照
	expectLiveSelect(mock, "s1", true, 0, nil)
	// 三个观众进入
	for i := int64(1); i <= 3; i++ {
		mock.ExpectExec(liveIncrRe).WithArgs(1, "s1", true).WillReturnResult(sqlmock.NewResult(0, 1))
		expectLiveSelect(mock, "s1", true, i, nil)
	}
	// 两个离开
	for i := int64(2); i >= 1; i-- {
		mock.ExpectExec(liveDecrRe).WithArgs(1, "s1", true, 0).WillReturnResult(sqlmock.NewResult(0, 1))
		expectLiveSelect(mock, "s1", true, i, nil)
	}
	// 主播结束
	expectLiveSelect(mock, "s1", true, 1, nil)
	mock.ExpectExec(liveEndRe).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLiveSelect(mock, "s1", false, 1, &ended)
	// 结束后的 join 被拒绝
	mock.ExpectExec(liveIncrRe).WithArgs(1, "s1", true).WillReturnResult(sqlmock.NewResult(0, 0))
	expectLiveSelect(mock, "s1", false, 1, &ended)

	stream, err := svc.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var st *LiveSessionState
	for i := 0; i < 3; i++ {
		if st, err = svc.Join(ctx, "s1"); err != nil {
			t.Fatalf("Join %d: %v", i, err)
		}
	}
	if st.ViewerCount != 3 {
		t.Fatalf("expected 3 viewers, got %d", st.ViewerCount)
	}
	for i := 0; i < 2; i++ {
		if err := svc.Leave(ctx, "s1"); err != nil {
			t.Fatalf("Leave %d: %v", i, err)
		}
	}
	if err := svc.End(ctx, "s1", 7); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := svc.Join(ctx, "s1"); !errors.Is(err, errs.ErrStreamEnded) {
		t.Fatalf("join after end: expected ErrStreamEnded, got %v", err)
	}

	var got []LiveSessionState
	timeout := time.After(3 * time.Second)
	for closed := false; !closed; {
		select {
		case s, ok := <-stream:
			if !ok {
				closed = true
				break
			}
			got = append(got, s)
		case <-timeout:
			t.Fatalf("stream did not close, got %d states", len(got))
		}
	}

	terminal := 0
	for _, s := range got {
		if !s.IsActive {
			terminal++
		}
	}
	if terminal != 1 || got[len(got)-1].IsActive || got[len(got)-1].ViewerCount != 1 {
		t.Fatalf("expected exactly one terminal state at the end, got %#v", got)
	}
	if got[0].ViewerCount != 0 {
		t.Fatalf("first state should be the snapshot, got %#v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLiveSession_SubscribeEndedSession(t *testing.T) {
	svc, mock, done := newLiveService(t, true)
	defer done()
	ended := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	expectLiveSelect(mock, "s1", false, 0, &ended)

	stream, err := svc.Subscribe(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	st, ok := <-stream
	if !ok || st.IsActive {
		t.Fatalf("expected one terminal state, got %#v ok=%v", st, ok)
	}
	if _, ok := <-stream; ok {
		t.Fatalf("stream should close after terminal state")
	}
}
