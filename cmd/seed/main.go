package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-task-tracker/config"
	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	pginfra "github.com/oksasatya/go-ddd-task-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/helpers"
)

// seed creates a demo account with a few tasks. Re-running it refreshes the
// password and leaves existing tasks alone.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, MinConns: 1})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer pool.Close()

	email := application.NormalizeEmail("demo@example.com")
	password := "password123"
	name := "Demo User"
	hash, err := helpers.NewPasswordHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, avatar_url)
		VALUES ($1, $2, $3, '')
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()
		RETURNING id
	`, email, hash, name).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", id, email, password)

	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE user_id = $1`, id).Scan(&existing); err != nil {
		log.Fatalf("failed to count tasks: %v", err)
	}
	if existing > 0 {
		fmt.Printf("user already has %d tasks, skipping\n", existing)
		return
	}

	samples := []struct {
		title, description string
		completed          bool
	}{
		{"Read the API docs", "Start with the auth endpoints", true},
		{"Create a task", "POST /api/tasks with a bearer token", false},
		{"Toggle a task", "PATCH /api/tasks/:id/complete", false},
	}
	for _, s := range samples {
		if _, err := pool.Exec(ctx,
			`INSERT INTO tasks (title, description, completed, user_id) VALUES ($1, $2, $3, $4)`,
			s.title, s.description, s.completed, id,
		); err != nil {
			log.Fatalf("failed to seed task %q: %v", s.title, err)
		}
	}
	fmt.Printf("seeded %d tasks\n", len(samples))
}
