package integration

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/xuri/excelize/v2"

	"github.com/kamass93/quiz-bot/internal/domain"
	infraredis "github.com/kamass93/quiz-bot/internal/infra/redis"
	pgledger "github.com/kamass93/quiz-bot/internal/ledger/postgres"
	pgmigrations "github.com/kamass93/quiz-bot/internal/ledger/postgres/migrations"
	"github.com/kamass93/quiz-bot/internal/quiz"
	"github.com/kamass93/quiz-bot/internal/source/xlsx"
)

func TestQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	ledger := pgledger.New(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	workbook := writeWorkbook(t)
	counting := &countingSource{inner: xlsx.New(workbook)}
	source := infraredis.NewCachedSource(redisClient, counting, 5*time.Minute)

	gw := &recordingGateway{}
	service := quiz.NewService(gw, source, ledger, stubRenderer{}, quiz.Options{
		MaxQuestions:    20,
		LeaderboardSize: 10,
	})

	service.Begin(ctx, 7, "alice")
	service.ChooseCategory(ctx, 7, "general")

	for {
		sess, ok := service.Snapshot(7)
		if !ok {
			t.Fatal("session gone mid-run")
		}
		if sess.Done {
			break
		}
		service.Answer(ctx, 7, sess.CorrectAnswer)
	}

	top, err := ledger.TopByCategory(ctx, "general", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("expected 1 score record, got %d", len(top))
	}
	if top[0].Username != "alice" || top[0].Score != 3 || top[0].Total != 3 {
		t.Fatalf("unexpected record %+v", top[0])
	}

	// A second run should be served from the Redis cache, not the workbook.
	before := counting.calls()
	service.Begin(ctx, 8, "bob")
	service.ChooseCategory(ctx, 8, "general")
	if counting.calls() != before {
		t.Fatalf("expected cached reads, workbook was hit %d more times", counting.calls()-before)
	}
}

func writeWorkbook(t *testing.T) string {
	t.Helper()

	rows := [][]any{
		{"category", "question", "options", "answer", "image"},
		{"general", "What is 2 + 2?", "3;4;5", "4", ""},
		{"general", "Color of the sky?", "Blue;Green", "Blue", ""},
		{"general", "Capital of France?", "Paris;Rome;Berlin", "Paris", ""},
	}

	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "quiz.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

type countingSource struct {
	inner quiz.QuestionSource
	mu    sync.Mutex
	n     int
}

func (c *countingSource) Categories(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return c.inner.Categories(ctx)
}

func (c *countingSource) QuestionsFor(ctx context.Context, category string) ([]domain.Question, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return c.inner.QuestionsFor(ctx, category)
}

func (c *countingSource) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type recordingGateway struct {
	mu     sync.Mutex
	nextID int
}

func (g *recordingGateway) SendText(ctx context.Context, userID int64, text string, rows ...[]quiz.Button) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return g.nextID, nil
}

func (g *recordingGateway) SendImage(ctx context.Context, userID int64, image []byte, caption string, rows ...[]quiz.Button) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return g.nextID, nil
}

func (g *recordingGateway) EditText(ctx context.Context, userID int64, messageID int, text string) error {
	return nil
}

func (g *recordingGateway) EditButtons(ctx context.Context, userID int64, messageID int, rows ...[]quiz.Button) error {
	return nil
}

func (g *recordingGateway) DeleteMessage(ctx context.Context, userID int64, messageID int) error {
	return nil
}

type stubRenderer struct{}

func (stubRenderer) Render(username, category string, score, total int) ([]byte, error) {
	return []byte("png"), nil
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
