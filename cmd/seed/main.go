// seed inserts a provider-less test user into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ErlanBelekov/xblt/internal/domain"
	"github.com/ErlanBelekov/xblt/internal/infrastructure/postgres"
)

const seedEmail = "seed@test.local"

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL, slog.Default())
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Printf("migrate: %v", err)
		return
	}

	users := postgres.NewUserRepository(pool)

	user, err := users.Create(ctx, &domain.User{Email: seedEmail, Name: "Seed User"})
	switch {
	case errors.Is(err, domain.ErrUserExists):
		user, err = users.FindByEmail(ctx, seedEmail)
		if err != nil {
			log.Printf("find user: %v", err)
			return
		}
	case err != nil:
		log.Printf("create user: %v", err)
		return
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:    %s\n", user.Email)
	fmt.Printf("  User ID: %s\n", user.ID)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1: request an OTP for a fresh address:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/users/otp-generate \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Println("      -d '{\"email\":\"new@test.local\"}'")
	fmt.Println("    # → {\"message\":\"OTP sent successfully\"}, the code is in the server log")
	fmt.Println("    # repeat within 5 minutes → 400 OTP already sent")
	fmt.Println()
	fmt.Println("  Step 2: the same request for the seed user is rejected:")
	fmt.Println()
	fmt.Printf("    # {\"email\":\"%s\"} → 400 {\"message\":\"User already created with this email\"}\n", seedEmail)
	fmt.Println()
	fmt.Println("  Step 3: sign in with Google as the seed address:")
	fmt.Println()
	fmt.Println("    open http://localhost:8080/users/google")
	fmt.Println("    # the Google id is linked to the seed user and token_id_user is set")
	fmt.Println()
	fmt.Println("  Step 4: call a protected route with the session cookie or a bearer token:")
	fmt.Println()
	fmt.Println("    curl -s http://localhost:8080/users/me -H \"Authorization: Bearer $JWT\"")
}
