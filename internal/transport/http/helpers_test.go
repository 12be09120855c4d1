package http

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"flashcard-challenge-service/internal/app"
	mock_app "flashcard-challenge-service/internal/app/mock"
	"flashcard-challenge-service/internal/infra/memory"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	router    *gin.Engine
	service   *app.ChallengeService
	generator *mock_app.MockGenerator
	history   *memory.HistoryStore
	users     *memory.UserStore
	limiter   *RateLimiter
}

func newTestEnv(t *testing.T, secret string, opts ...app.Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	env := &testEnv{
		generator: mock_app.NewMockGenerator(ctrl),
		history:   memory.NewHistoryStore(),
		users:     memory.NewUserStore(),
		limiter:   NewRateLimiter(5, time.Minute, nil),
	}
	env.service = app.NewChallengeService(app.Stores{
		Challenges: memory.NewChallengeStore(),
		Questions:  memory.NewQuestionStore(),
		History:    env.history,
		Decks:      memory.NewDeckStore(map[string]string{"deck-1": "Capitals"}),
	}, env.generator, memory.NewAttemptStore(), memory.NewFinalizeGuard(), zap.NewNop(), opts...)

	env.router = NewRouter(RouterConfig{
		Service:   env.service,
		Streaks:   app.NewStreakService(env.users, zap.NewNop()),
		Limiter:   env.limiter,
		Logger:    zap.NewNop(),
		JWTSecret: secret,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
