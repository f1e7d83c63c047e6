package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aidanmarr1/dt-chat-sub000/internal/config"
	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
)

// SetupTestDB initializes a fresh in-memory SQLite DB for testing
func SetupTestDB() {
	db, _ := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	database.DB = db

	// cache=shared keeps the DB alive across connections, so wipe any
	// tables left over from a previous test
	database.DB.Migrator().DropTable(
		&models.User{},
		&models.Message{},
		&models.Reaction{},
		&models.ReadReceipt{},
		&models.LinkPreview{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
	)
	database.DB.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Reaction{},
		&models.ReadReceipt{},
		&models.LinkPreview{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
	)

	config.AppConfig = &config.Config{JWTSecret: "test_secret_key_12345"}

	gin.SetMode(gin.TestMode)
}

func createTestUser(id, username string) models.User {
	u := models.User{ID: id, Username: username, DisplayName: username}
	database.DB.Create(&u)
	return u
}

func createTestMessage(id, userID, content string, createdAt time.Time) models.Message {
	m := models.Message{ID: id, UserID: userID, Content: content, CreatedAt: createdAt}
	database.DB.Create(&m)
	return m
}

// testContext builds a gin test context authenticated as userID
func testContext(userID, method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	c.Request = req
	c.Set("userId", userID)
	return c, w
}
