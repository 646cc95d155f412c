package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/masaki/inkwell/internal/config"
	"github.com/masaki/inkwell/internal/database"
	"github.com/masaki/inkwell/internal/model"
	"github.com/masaki/inkwell/internal/repository"
	"github.com/masaki/inkwell/internal/security"
)

// seedPostCount は投入するダミー投稿の件数。
const seedPostCount = 40

// seedBody はダミー投稿の本文。
const seedBody = `Lorem ipsum dolor sit amet, consectetur adipiscing elit, ` +
	`sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. ` +
	`Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris ` +
	`nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in ` +
	`reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.`

// runSeed は開発用のダミーデータを投入する。
// デモユーザーが存在しない場合は作成し、そのユーザーが所有する投稿を
// seedPostCount件投入する。本番環境での使用は想定しない。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	userRepo := repository.NewPostgresUserRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	sanitizer := security.NewContentSanitizer()

	// 1. デモユーザーの確保
	user, err := userRepo.FindByUsername(ctx, "demo")
	if err != nil {
		return fmt.Errorf("failed to find demo user: %w", err)
	}
	if user == nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte("demo1234"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}
		now := time.Now().UTC()
		user = &model.User{
			ID:             uuid.NewString(),
			Username:       "demo",
			HashedPassword: string(hashed),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create demo user: %w", err)
		}
		slog.Info("demo user created", slog.String("user_id", user.ID))
	}

	// 2. ダミー投稿の投入
	// published_atを1分ずつずらして一覧の並び順を安定させる
	base := time.Now().UTC().Add(-time.Duration(seedPostCount) * time.Minute)
	tagSets := [][]string{
		{"dev", "go"},
		{"essay"},
		{"dev", "database"},
		{"note", "essay"},
	}

	for i := 1; i <= seedPostCount; i++ {
		now := time.Now().UTC()
		p := &model.Post{
			ID:          uuid.NewString(),
			Title:       fmt.Sprintf("投稿 #%d", i),
			Body:        sanitizer.Sanitize(seedBody),
			Tags:        tagSets[i%len(tagSets)],
			PublishedAt: base.Add(time.Duration(i) * time.Minute),
			Owner: model.Owner{
				ID:       user.ID,
				Username: user.Username,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := postRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to seed post %d: %w", i, err)
		}
	}

	slog.Info("seed completed",
		slog.Int("posts", seedPostCount),
		slog.String("owner", user.Username),
	)
	return nil
}
