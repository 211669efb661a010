package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mandala/internal/auth"
	"mandala/internal/cheer"
	"mandala/internal/database"
	"mandala/internal/generate"
	"mandala/internal/mandala"
	"mandala/internal/session"
	"mandala/internal/store"
)

type scriptedGenerator struct {
	items []string
	err   error
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string, _ generate.Mode, _ string) ([]string, error) {
	return g.items, g.err
}

type testEnv struct {
	router *gin.Engine
	gate   *auth.PinGate
	gen    *scriptedGenerator
	db     *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&database.User{},
		&database.Chart{},
		&database.Message{},
		&database.Export{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st := store.NewGormStore(db)
	if err := st.CreateUser(context.Background(), store.User{
		ID: "u1", Name: "김도윤", AvatarColor: "bg-blue-400", MainGoal: "클라우드 전문가",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := &scriptedGenerator{}
	sessions := session.NewManager(st, gen, logger, 10*time.Millisecond, 0)

	hash, err := auth.HashPin("0401")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	gate := auth.NewPinGate(hash, "test-secret", time.Minute)

	// 指向不可达地址：限流计数不可用时校验本身仍放行。
	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:0"})

	router := gin.New()
	RegisterRoutes(router, db, st, sessions, gate, asynqClient, redisClient, nil, logger, "internal-test-secret", nil)

	return &testEnv{router: router, gate: gate, gen: gen, db: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestOpenChartSeedsFromMainGoal(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/charts/u1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		User  store.User   `json:"user"`
		Title string       `json:"title"`
		Grid  mandala.Grid `json:"grid"`
	}
	decodeBody(t, w, &resp)

	if resp.Grid[4][4].Text != "클라우드 전문가" {
		t.Fatalf("absolute center = %q", resp.Grid[4][4].Text)
	}
	if resp.Title != "김도윤님의 2026년 성장 계획" {
		t.Fatalf("title = %q", resp.Title)
	}
}

func TestOpenChartUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/v1/charts/nope", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUpdateCellMirrorsInResponse(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/v1/charts/u1", nil, nil)

	body := map[string]any{
		"block": 4,
		"cell":  1,
		"item":  map[string]any{"text": "건강", "isDraft": false, "isAccepted": true},
	}
	w := env.do(t, http.MethodPut, "/v1/charts/u1/cells", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Grid mandala.Grid `json:"grid"`
	}
	decodeBody(t, w, &resp)
	if resp.Grid[1][4].Text != "건강" {
		t.Fatalf("mirror cell = %+v", resp.Grid[1][4])
	}
}

func TestUpdateCellValidation(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/v1/charts/u1", nil, nil)

	body := map[string]any{"block": 9, "cell": 0, "item": map[string]any{"text": "x"}}
	if w := env.do(t, http.MethodPut, "/v1/charts/u1/cells", body, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUpdateCellRequiresOpenChart(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"block": 0, "cell": 0, "item": map[string]any{"text": "x"}}
	if w := env.do(t, http.MethodPut, "/v1/charts/u1/cells", body, nil); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGenerateStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/v1/charts/u1", nil, nil)

	// 外围块 2 的子目标为空。
	if w := env.do(t, http.MethodPost, "/v1/charts/u1/generate", map[string]any{"block": 2}, nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty seed status = %d", w.Code)
	}

	env.gen.err = errors.New("deadline exceeded")
	if w := env.do(t, http.MethodPost, "/v1/charts/u1/generate", map[string]any{"block": 4}, nil); w.Code != http.StatusBadGateway {
		t.Fatalf("collaborator failure status = %d", w.Code)
	}

	env.gen.err = nil
	env.gen.items = []string{"운동", "독서", "네트워킹"}
	w := env.do(t, http.MethodPost, "/v1/charts/u1/generate", map[string]any{"block": 4}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Grid mandala.Grid `json:"grid"`
	}
	decodeBody(t, w, &resp)
	if resp.Grid[4][0].Text != "운동" || !resp.Grid[4][0].IsDraft {
		t.Fatalf("first suggestion = %+v", resp.Grid[4][0])
	}
}

func TestVerifyPinIssuesToken(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/v1/admin/verify", map[string]any{"pin": "9999", "action": "add-user"}, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong pin status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/v1/admin/verify", map[string]any{"pin": "0401", "action": "format-disk"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown action status = %d", w.Code)
	}

	w := env.do(t, http.MethodPost, "/v1/admin/verify", map[string]any{"pin": "0401", "action": "add-user"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("empty token")
	}
}

func TestCreateUserRequiresActionToken(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"name": "이서연", "mainGoal": "PM 되기", "token": "garbage"}
	if w := env.do(t, http.MethodPost, "/v1/users", body, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}

	token, err := env.gate.Verify("0401", auth.ActionAddUser, "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	body["token"] = token
	w := env.do(t, http.MethodPost, "/v1/users", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var created store.User
	decodeBody(t, w, &created)
	if created.ID == "" || created.AvatarColor == "" {
		t.Fatalf("created user = %+v", created)
	}
}

func TestDeleteUserTokenBoundToTarget(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.gate.Verify("0401", auth.ActionDeleteUser, "someone-else")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	headers := map[string]string{"X-Action-Token": token}
	if w := env.do(t, http.MethodDelete, "/v1/users/u1", nil, headers); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}

	token, err = env.gate.Verify("0401", auth.ActionDeleteUser, "u1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	headers["X-Action-Token"] = token
	if w := env.do(t, http.MethodDelete, "/v1/users/u1", nil, headers); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	if w := env.do(t, http.MethodGet, "/v1/charts/u1", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleted user still opens: %d", w.Code)
	}
}

func TestCheerMessageLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/charts/u1/messages", map[string]any{"text": "화이팅!", "author": "이서연"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var msg cheer.Message
	decodeBody(t, w, &msg)
	if msg.ID == "" || msg.Style.Left == "" {
		t.Fatalf("message = %+v", msg)
	}

	w = env.do(t, http.MethodGet, "/v1/charts/u1/messages", nil, nil)
	var list struct {
		Messages []cheer.Message `json:"messages"`
	}
	decodeBody(t, w, &list)
	if len(list.Messages) != 1 {
		t.Fatalf("got %d messages", len(list.Messages))
	}

	move := map[string]any{"left": "50.0000%", "top": "30.0000%"}
	if w := env.do(t, http.MethodPut, "/v1/messages/"+msg.ID+"/position", move, nil); w.Code != http.StatusNoContent {
		t.Fatalf("move status = %d", w.Code)
	}

	if w := env.do(t, http.MethodDelete, "/v1/messages/"+msg.ID, nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated delete status = %d", w.Code)
	}
	token, err := env.gate.Verify("0401", auth.ActionDeleteMessage, msg.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	headers := map[string]string{"X-Action-Token": token}
	if w := env.do(t, http.MethodDelete, "/v1/messages/"+msg.ID, nil, headers); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
}

func TestCreateExportRejectsUnknownResolution(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/v1/charts/u1", nil, nil)

	body := map[string]any{"width": 640, "height": 480, "includeMessages": true}
	if w := env.do(t, http.MethodPost, "/v1/charts/u1/export", body, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestInternalEndpointRequiresSecret(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/v1/internal/exports/x/data", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no secret status = %d", w.Code)
	}

	headers := map[string]string{"X-Internal-Secret": "internal-test-secret"}
	if w := env.do(t, http.MethodGet, "/v1/internal/exports/x/data", nil, headers); w.Code != http.StatusNotFound {
		t.Fatalf("missing export status = %d", w.Code)
	}
}
