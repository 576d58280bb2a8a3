package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/2beens/trainingboard/internal/auth"
	"github.com/2beens/trainingboard/internal/config"
	"github.com/2beens/trainingboard/internal/db"
	"github.com/2beens/trainingboard/pkg"

	log "github.com/sirupsen/logrus"
)

// adds an app user (coach or client) that can log in next to the env admin
func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	username := flag.String("username", "", "new user username")
	role := flag.String("role", string(auth.RoleClient), "new user role [admin | client]")
	flag.Parse()

	password := os.Getenv("TRAININGBOARD_NEW_USER_PASSWORD")
	if *username == "" || password == "" {
		log.Fatalln("username and password required: use -username and TRAININGBOARD_NEW_USER_PASSWORD")
	}

	userRole, err := auth.ParseRole(*role)
	if err != nil {
		log.Fatalf("invalid role: %s", err)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: cfg.PostgresHost,
		DBPort: cfg.PostgresPort,
		DBName: cfg.PostgresDBName,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %s", err)
	}

	user, err := auth.NewUsersRepo(dbPool).Add(ctx, auth.User{
		Username:     *username,
		PasswordHash: passwordHash,
		Role:         userRole,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		log.Fatalf("add user %s: %s", *username, err)
	}

	log.Printf("user %s added with id %d and role %s", user.Username, user.ID, user.Role)
}
