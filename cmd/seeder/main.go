package main

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aidanmarr1/dt-chat-sub000/internal/config"
	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
)

// Seeds a handful of demo users and messages for local development
func main() {
	config.LoadConfig()
	database.Connect()

	if err := database.DB.AutoMigrate(
		&models.User{}, &models.Message{}, &models.Reaction{},
		&models.ReadReceipt{}, &models.LinkPreview{},
		&models.Poll{}, &models.PollOption{}, &models.PollVote{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	users := []models.User{
		{Username: "alice", DisplayName: "Alice", AvatarID: 1, Password: string(hash)},
		{Username: "bob", DisplayName: "Bob", AvatarID: 2, Password: string(hash)},
		{Username: "carol", DisplayName: "Carol", AvatarID: 3, Password: string(hash)},
	}
	for i := range users {
		if err := database.DB.Where("username = ?", users[i].Username).
			FirstOrCreate(&users[i]).Error; err != nil {
			log.Fatalf("seed user %s: %v", users[i].Username, err)
		}
	}

	lines := []string{
		"hey everyone 👋",
		"morning! anyone up for lunch later?",
		"check out https://go.dev/blog/ when you get a chance",
	}
	base := time.Now().Add(-time.Hour)
	for i, line := range lines {
		msg := models.Message{
			UserID:    users[i%len(users)].ID,
			Content:   line,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := database.DB.Create(&msg).Error; err != nil {
			log.Fatalf("seed message: %v", err)
		}
	}

	fmt.Println("Seeded demo users (password: password123) and messages")
}
