// Package main 初始化数据库结构并签发本地开发用的访问令牌
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"thoth-writer-api/internal/config"
	"thoth-writer-api/internal/wire"
	"thoth-writer-api/pkg/utils"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 1. 建表
	client, cleanup, err := wire.InitializeMigrator(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize postgres: %v", err)
	}
	defer cleanup()

	if err := client.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated.")

	// 2. 签发开发令牌
	if cfg.Security.JWT.Secret == "" {
		fmt.Println("security.jwt.secret not set, skip token issuance.")
		return
	}

	userID := os.Getenv("BOOTSTRAP_USER_ID")
	if userID == "" {
		userID = uuid.NewString()
	}
	if _, err := uuid.Parse(userID); err != nil {
		log.Fatalf("BOOTSTRAP_USER_ID must be a uuid: %v", err)
	}
	email := os.Getenv("BOOTSTRAP_USER_EMAIL")

	ttl := cfg.Security.JWT.Expiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).GenerateToken(userID, email, ttl)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Printf("User ID: %s\n", userID)
	fmt.Printf("Access token (expires in %s):\n%s\n", ttl, token)
}
