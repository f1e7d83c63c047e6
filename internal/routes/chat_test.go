package routes

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aidanmarr1/dt-chat-sub000/internal/config"
	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/middleware"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/utils"
)

// setupChatRouter builds a real router over a fresh in-memory DB and
// returns a bearer token for the seeded user
func setupChatRouter(t *testing.T, limits *middleware.RateLimits) (*gin.Engine, string) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	assert.NoError(t, err)
	database.DB = db

	db.Migrator().DropTable(
		&models.User{}, &models.Message{}, &models.Reaction{},
		&models.ReadReceipt{}, &models.LinkPreview{},
		&models.Poll{}, &models.PollOption{}, &models.PollVote{},
	)
	db.AutoMigrate(
		&models.User{}, &models.Message{}, &models.Reaction{},
		&models.ReadReceipt{}, &models.LinkPreview{},
		&models.Poll{}, &models.PollOption{}, &models.PollVote{},
	)

	config.AppConfig = &config.Config{JWTSecret: "test_secret_key_12345"}
	gin.SetMode(gin.TestMode)

	user := models.User{ID: "u1", Username: "alice", DisplayName: "alice"}
	db.Create(&user)
	db.Create(&models.Message{ID: "m1", UserID: "u1", Content: "hello", CreatedAt: time.Now()})

	token, err := utils.GenerateToken("u1")
	assert.NoError(t, err)

	r := gin.New()
	api := r.Group("/api")
	RegisterChatRoutes(api, limits)
	return r, token
}

func doJSON(r *gin.Engine, token, method, path, body string) int {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestChatRoutes_MutationsAreRateLimited(t *testing.T) {
	limits := &middleware.RateLimits{
		Send:    middleware.NewFixedWindowLimiter(100, time.Minute),
		Search:  middleware.NewFixedWindowLimiter(100, time.Minute),
		Receipt: middleware.NewFixedWindowLimiter(100, time.Minute),
		Mutate:  middleware.NewFixedWindowLimiter(2, time.Minute),
	}
	r, token := setupChatRouter(t, limits)

	// The mutation budget is shared across edit/delete/react/pin/vote;
	// the third call in the window is rejected
	code := doJSON(r, token, "POST", "/api/messages/m1/reactions", `{"emoji":"👍"}`)
	assert.Equal(t, http.StatusOK, code)
	code = doJSON(r, token, "POST", "/api/messages/m1/pin", `{"action":"pin"}`)
	assert.Equal(t, http.StatusOK, code)
	code = doJSON(r, token, "POST", "/api/messages/m1/reactions", `{"emoji":"👍"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)

	// Every mutating route shares the exhausted budget
	code = doJSON(r, token, "PATCH", "/api/messages/m1", `{"content":"edited"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	code = doJSON(r, token, "DELETE", "/api/messages/m1", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	code = doJSON(r, token, "POST", "/api/polls/p1/vote", `{"optionId":"o1"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestChatRoutes_FeedPollIsUnlimited(t *testing.T) {
	limits := &middleware.RateLimits{
		Send:    middleware.NewFixedWindowLimiter(1, time.Minute),
		Search:  middleware.NewFixedWindowLimiter(1, time.Minute),
		Receipt: middleware.NewFixedWindowLimiter(1, time.Minute),
		Mutate:  middleware.NewFixedWindowLimiter(1, time.Minute),
	}
	r, token := setupChatRouter(t, limits)

	for i := 0; i < 10; i++ {
		code := doJSON(r, token, "GET", "/api/messages", "")
		assert.Equal(t, http.StatusOK, code)
	}
}
