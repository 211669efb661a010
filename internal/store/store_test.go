package store

import (
	"context"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mandala/internal/cheer"
	"mandala/internal/database"
	"mandala/internal/mandala"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Chart{}, &database.Message{}, &database.Export{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormStore(db)
}

func TestSaveGridRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := mandala.SeededGrid("메인 목표")
	g = mandala.UpdateCell(g, 4, 2, mandala.GoalItem{Text: "건강", IsAccepted: true})
	g = mandala.MergeSuggestions(g, 2, []string{"스트레칭", "조깅"})

	if err := s.SaveGrid(ctx, "u1", g); err != nil {
		t.Fatalf("save grid: %v", err)
	}

	loaded, ok, err := s.GetGrid(ctx, "u1")
	if err != nil {
		t.Fatalf("get grid: %v", err)
	}
	if !ok {
		t.Fatal("grid not found after save")
	}
	if loaded != g {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, g)
	}
}

func TestGetGridAbsent(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetGrid(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get grid: %v", err)
	}
	if ok {
		t.Fatal("expected absent grid")
	}
}

func TestSaveGridPreservesTitle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SaveTitle(ctx, "u1", "나의 2026 성장 계획"); err != nil {
		t.Fatalf("save title: %v", err)
	}
	if err := s.SaveGrid(ctx, "u1", mandala.SeededGrid("목표")); err != nil {
		t.Fatalf("save grid: %v", err)
	}

	title, err := s.GetTitle(ctx, "u1")
	if err != nil {
		t.Fatalf("get title: %v", err)
	}
	if title != "나의 2026 성장 계획" {
		t.Fatalf("title = %q, want it preserved across grid saves", title)
	}

	// And the other direction: a title save must not clobber the grid.
	if err := s.SaveTitle(ctx, "u1", "새 제목"); err != nil {
		t.Fatalf("save title: %v", err)
	}
	_, ok, err := s.GetGrid(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("grid lost after title save: ok=%v err=%v", ok, err)
	}
}

func TestCreateUserIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := User{ID: "42", Name: "김신입", AvatarColor: "bg-sky-500", MainGoal: "최고의 개발자 되기"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	user.MainGoal = "더 높은 목표"
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("re-create: %v", err)
	}

	users, err := s.GetUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1", len(users))
	}
	if users[0].MainGoal != "더 높은 목표" {
		t.Fatalf("upsert did not update: %+v", users[0])
	}
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.CreateUser(ctx, User{ID: "u1", Name: "고권아"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.SaveGrid(ctx, "u1", mandala.SeededGrid("목표")); err != nil {
		t.Fatalf("save grid: %v", err)
	}
	msg := cheer.Place(nil, "화이팅!", "동료")
	if err := s.AddMessage(ctx, "u1", msg); err != nil {
		t.Fatalf("add message: %v", err)
	}

	if err := s.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	users, err := s.GetUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("user still present: %+v", users)
	}
	if _, ok, _ := s.GetGrid(ctx, "u1"); ok {
		t.Fatal("chart survived user deletion")
	}
	msgs, err := s.GetMessages(ctx, "u1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("messages survived user deletion: %+v", msgs)
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := cheer.Place(nil, "응원합니다", "박미지")
	second := cheer.Place([]cheer.Message{first}, "멋져요", "이우진")
	for _, msg := range []cheer.Message{first, second} {
		if err := s.AddMessage(ctx, "u1", msg); err != nil {
			t.Fatalf("add message: %v", err)
		}
	}

	msgs, err := s.GetMessages(ctx, "u1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0] != first || msgs[1] != second {
		t.Fatalf("round trip mismatch: %+v vs %+v", msgs, []cheer.Message{first, second})
	}

	if err := s.DeleteMessage(ctx, first.ID); err != nil {
		t.Fatalf("delete message: %v", err)
	}
	msgs, err = s.GetMessages(ctx, "u1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != second.ID {
		t.Fatalf("delete left %+v", msgs)
	}
}
