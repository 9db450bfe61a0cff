package repository

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/database"
	"github.com/axonhq/axon/internal/model"
)

// testDSNEnv names a Postgres URL the tests may create and drop schemas in.
const testDSNEnv = "AXON_TEST_DATABASE_URL"

// newTestRepository migrates a throwaway schema and returns a repository
// bound to it. The schema is dropped when the test ends.
func newTestRepository(t *testing.T) *TrafficRepository {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(admin.Close)

	schema := fmt.Sprintf("axon_test_%d", time.Now().UnixNano())
	quoted := pgx.Identifier{schema}.Sanitize()
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+quoted); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if _, err := admin.Exec(context.Background(), "DROP SCHEMA "+quoted+" CASCADE"); err != nil {
			t.Errorf("drop schema: %v", err)
		}
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.RunMigrations(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewTrafficRepository(pool)
}

var dbNow = time.UnixMilli(1700000000000)

func trafficAt(path string, label model.Label, age time.Duration) model.TrafficEvent {
	return model.TrafficEvent{
		Timestamp:  dbNow.Add(-age).UnixMilli(),
		Path:       path,
		Method:     "GET",
		IP:         "203.0.113.9",
		Country:    "DE",
		UserAgent:  "curl/8.0",
		Prediction: label,
		Confidence: 0.8,
		BotScore:   10,
	}
}

func TestTrafficRepositoryInsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	in := trafficAt("/.git/config", model.LabelAttack, time.Minute)
	got, err := repo.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got.ID <= 0 || got.CreatedAt.IsZero() {
		t.Fatalf("Insert did not fill id/created_at: %+v", got)
	}
	got.ID, got.CreatedAt = 0, time.Time{}
	if got != in {
		t.Fatalf("Insert changed the event: %+v, want %+v", got, in)
	}

	second, err := repo.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if second.ID <= got.ID {
		t.Fatalf("ids not increasing: %d then %d", got.ID, second.ID)
	}
}

func TestTrafficRepositoryRejectsUnknownLabel(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.Write(context.Background(), trafficAt("/x", model.Label("maybe"), 0)); err == nil {
		t.Fatal("Write accepted a label outside attack/legit")
	}
}

func TestTrafficRepositoryStatsEmpty(t *testing.T) {
	repo := newTestRepository(t)
	st, err := repo.Stats(context.Background(), dbNow)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalRequests != 0 || st.AttackRate != 0 || len(st.TopAttackTypes) != 0 {
		t.Fatalf("empty stats = %+v", st)
	}
	if st.Timestamp != dbNow.UnixMilli() {
		t.Fatalf("timestamp = %d", st.Timestamp)
	}
}

func TestTrafficRepositoryStats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, ev := range []model.TrafficEvent{
		trafficAt("/wp-login.php", model.LabelAttack, 10*time.Minute),
		trafficAt("/wp-login.php", model.LabelAttack, 20*time.Minute),
		trafficAt("/.env", model.LabelAttack, 2*time.Hour),
		trafficAt("/.env", model.LabelAttack, 3*time.Hour),
		trafficAt("/admin", model.LabelAttack, 30*time.Minute),
		trafficAt("/api/users", model.LabelLegit, 5*time.Minute),
	} {
		if err := repo.Write(ctx, ev); err != nil {
			t.Fatalf("Write(%s): %v", ev.Path, err)
		}
	}

	paths, err := repo.TopAttackPaths(ctx, 10)
	if err != nil {
		t.Fatalf("TopAttackPaths: %v", err)
	}
	wantPaths := []PathCount{{"/.env", 2}, {"/wp-login.php", 2}, {"/admin", 1}}
	if !reflect.DeepEqual(paths, wantPaths) {
		t.Fatalf("TopAttackPaths = %+v, want %+v", paths, wantPaths)
	}

	limited, err := repo.TopAttackPaths(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].Path != "/.env" {
		t.Fatalf("TopAttackPaths(1) = %+v, %v", limited, err)
	}

	st, err := repo.Stats(ctx, dbNow)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalRequests != 6 || st.AttacksBlocked != 5 || st.LegitTraffic != 1 {
		t.Fatalf("counts = %+v", st)
	}
	if st.RequestsLastHour != 4 {
		t.Fatalf("requests last hour = %d, want 4", st.RequestsLastHour)
	}
	if st.AttackRate != 0.833 {
		t.Fatalf("attack rate = %v, want 0.833", st.AttackRate)
	}
	wantTypes := []model.AttackTypeCount{
		{Type: CategorySensitive, Count: 2},
		{Type: CategoryWordPress, Count: 2},
		{Type: CategoryAdmin, Count: 1},
	}
	if !reflect.DeepEqual(st.TopAttackTypes, wantTypes) {
		t.Fatalf("top attack types = %+v, want %+v", st.TopAttackTypes, wantTypes)
	}
}
