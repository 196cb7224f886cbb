//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rosaine-academy/backend/internal/api"
	"github.com/rosaine-academy/backend/internal/auth"
	"github.com/rosaine-academy/backend/internal/quota"
)

const (
	testJWTSecret = "test-jwt-secret-at-least-32-chars!!"
	testIssuer    = "rosaine-academy"
)

type TestEnv struct {
	Pool     *pgxpool.Pool
	Server   *httptest.Server
	QuotaSvc *quota.Service
	Repo     *quota.Repository
}

var (
	testEnv *TestEnv
	counter atomic.Int64
)

func uniqueID() int64 {
	return counter.Add(1)
}

// TestMain owns the container lifecycle so the environment outlives any
// single test in the run.
func TestMain(m *testing.M) {
	env, cleanup, err := setupEnv(context.Background())
	if err != nil {
		log.Printf("integration setup: %v", err)
		os.Exit(1)
	}
	testEnv = env
	code := m.Run()
	cleanup()
	os.Exit(code)
}

// SetupTestEnv returns the shared environment started by TestMain.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv == nil {
		t.Fatal("test environment not initialized")
	}
	return testEnv
}

func setupEnv(ctx context.Context) (*TestEnv, func(), error) {
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "academy_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("starting postgres container: %w", err)
	}
	terminate := func() { pgContainer.Terminate(ctx) }

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/academy_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	m, err := migrate.New(
		fmt.Sprintf("file://%s", getMigrationsPath()),
		dsn,
	)
	if err != nil {
		pool.Close()
		terminate()
		return nil, nil, fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		pool.Close()
		terminate()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	repo := quota.NewRepository(pool)
	planRepo := quota.NewPlanRepository(pool)
	quotaSvc := quota.NewService(repo, quota.NewResolver(planRepo))
	quotaHandler := quota.NewHandler(quotaSvc, nil)

	verifier := auth.NewVerifier(testJWTSecret, testIssuer)

	router := api.NewRouter(pool, nil, nil, api.RouterConfig{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}, api.HandlerSet{
		GetQuota:   quotaHandler.GetStatus,
		UpdatePlan: quotaHandler.UpdatePlan,

		AuthMiddleware: auth.Middleware(verifier),
	})

	server := httptest.NewServer(router)

	env := &TestEnv{
		Pool:     pool,
		Server:   server,
		QuotaSvc: quotaSvc,
		Repo:     repo,
	}
	cleanup := func() {
		server.Close()
		pool.Close()
		terminate()
	}
	return env, cleanup, nil
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// TokenFor mints a bearer token the router's auth middleware accepts.
func TokenFor(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sending request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return result
}
