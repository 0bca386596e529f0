package call_sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/cydxin/call-sdk/response"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type testEnv struct {
	engine *CallEngine
	router *gin.Engine
	mock   sqlmock.Sqlmock
}

type apiResp struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newTestEnv(t *testing.T, rtcConfigured bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqldb, SkipInitializeWithVersion: true}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	opts := []Option{WithDB(db), WithRDB(rdb), WithSkipAutoMigrate(true)}
	if rtcConfigured {
		opts = append(opts, WithRtcCredentials("970CA35de60c44645bbae8a215061b33", "5CFd2fd1755d40ecb72977518be15d3b"))
	}
	e := newEngine(opts...)
	r := gin.New()
	e.RegisterRoutes(r.Group("/api/v1"))

	t.Cleanup(func() {
		e.Close()
		_ = rdb.Close()
		_ = sqldb.Close()
	})
	return &testEnv{engine: e, router: r, mock: mock}
}

func (env *testEnv) token(t *testing.T, uid uint64) string {
	t.Helper()
	tok, err := env.engine.AuthService.Tokens().Issue(context.Background(), uid, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) (int, apiResp) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var out apiResp
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t, true)

	status, resp := env.do(t, http.MethodGet, "/api/v1/call/state", "", nil)
	if status != http.StatusUnauthorized || resp.Code != response.CodeTokenInvalid {
		t.Fatalf("expected 401/%d, got %d/%d", response.CodeTokenInvalid, status, resp.Code)
	}

	status, _ = env.do(t, http.MethodPost, "/api/v1/rtc/token", "bogus", map[string]any{"channelName": "c"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", status)
	}
}

func TestRtcToken_Issued(t *testing.T) {
	env := newTestEnv(t, true)
	tok := env.token(t, 1001)

	before := time.Now().Unix()
	status, resp := env.do(t, http.MethodPost, "/api/v1/rtc/token", tok, map[string]any{"channelName": "call_1001_1002", "uid": 5})
	if status != http.StatusOK || resp.Code != response.CodeSuccess {
		t.Fatalf("unexpected response: %d %+v", status, resp)
	}
	var data struct {
		Token       string `json:"token"`
		ChannelName string `json:"channelName"`
		UID         uint32 `json:"uid"`
		Role        string `json:"role"`
		ExpiresAt   int64  `json:"expiresAt"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Token == "" || data.ChannelName != "call_1001_1002" || data.UID != 5 || data.Role != "publisher" {
		t.Fatalf("unexpected token payload: %+v", data)
	}
	if d := data.ExpiresAt - before; d < 86400 || d > 86402 {
		t.Fatalf("expected 24h expiry, got +%ds", d)
	}
}

func TestRtcToken_NotConfigured(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.token(t, 1001)

	status, resp := env.do(t, http.MethodPost, "/api/v1/rtc/token", tok, map[string]any{"channelName": "c"})
	if status != http.StatusOK || resp.Code != response.CodeFailedPrecondition {
		t.Fatalf("expected code %d, got %d/%d", response.CodeFailedPrecondition, status, resp.Code)
	}
}

func TestRtcToken_BadBody(t *testing.T) {
	env := newTestEnv(t, true)
	tok := env.token(t, 1001)

	status, resp := env.do(t, http.MethodPost, "/api/v1/rtc/token", tok, map[string]any{"uid": 1})
	if status != http.StatusBadRequest || resp.Code != response.CodeParamError {
		t.Fatalf("expected 400/%d, got %d/%d", response.CodeParamError, status, resp.Code)
	}
}

func TestCallState_OfflineIsIdle(t *testing.T) {
	env := newTestEnv(t, true)
	tok := env.token(t, 7)

	_, resp := env.do(t, http.MethodGet, "/api/v1/call/state", tok, nil)
	var data struct {
		State string `json:"state"`
	}
	_ = json.Unmarshal(resp.Data, &data)
	if resp.Code != response.CodeSuccess || data.State != "idle" {
		t.Fatalf("unexpected state response: %+v", resp)
	}
}

func TestJoinLive_Missing(t *testing.T) {
	env := newTestEnv(t, true)
	tok := env.token(t, 7)

	env.mock.ExpectExec("UPDATE `im_live_session` SET `viewer_count`=viewer_count \\+ \\?").
		WithArgs(1, "nope", true).WillReturnResult(sqlmock.NewResult(0, 0))
	env.mock.ExpectQuery("SELECT \\* FROM `im_live_session` WHERE id = \\?").
		WithArgs("nope", 1).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	status, resp := env.do(t, http.MethodPost, "/api/v1/live/nope/join", tok, nil)
	if status != http.StatusOK || resp.Code != response.CodeNotFound {
		t.Fatalf("expected code %d, got %d/%d", response.CodeNotFound, status, resp.Code)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMarkNotificationsRead(t *testing.T) {
	env := newTestEnv(t, true)
	tok := env.token(t, 7)

	env.mock.ExpectExec("UPDATE `im_notification` SET `is_read`=\\?,`read_at`=\\? WHERE user_id = \\? AND id IN \\(\\?,\\?\\) AND is_read = \\?").
		WithArgs(true, sqlmock.AnyArg(), 7, 3, 4, false).
		WillReturnResult(sqlmock.NewResult(0, 2))

	_, resp := env.do(t, http.MethodPost, "/api/v1/notification/read", tok, map[string]any{"ids": []uint64{3, 4}})
	if resp.Code != response.CodeSuccess {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestAcceptCall_RequiresNotificationID(t *testing.T) {
	env := newTestEnv(t, true)
	tok := env.token(t, 2)

	status, _ := env.do(t, http.MethodPost, "/api/v1/call/accept", tok, map[string]any{"uid": 1})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}
