package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/database"
	"github.com/stemsi/perizinan-backend/internal/logger"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/store"
	"golang.org/x/term"
)

// create-admin provisions the first staff account. The dashboard can only
// provision accounts once an admin exists, so this runs outside of it.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.StoreBackend == config.StoreBackendMemory {
		fmt.Println("Error: STORE_BACKEND=memory keeps records in the server process, nothing to write to")
		os.Exit(1)
	}

	ctx := context.Background()

	// ─── Connect to PostgreSQL and Redis ───────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	authz, err := policy.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load access policy")
	}
	records := store.NewRedisStore(rdb, log)
	gateway := service.NewIdentityGateway(cfg, repository.NewIdentityRepository(pool), repository.NewSessionTokenRepository(rdb), log)
	provisioning := service.NewProvisioningService(
		gateway,
		repository.NewUserRepository(records),
		repository.NewTeacherRepository(records),
		repository.NewCompensationRepository(rdb),
		authz,
		log,
	)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create Staff Account ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	fmt.Print("Enter Role (admin/approver/submitter, default admin): ")
	roleStr, _ := reader.ReadString('\n')
	role := model.RoleAdmin
	if roleStr = strings.TrimSpace(roleStr); roleStr != "" {
		parsed, ok := model.ParseRole(roleStr)
		if !ok {
			fmt.Printf("Error: unknown role %q\n", roleStr)
			return
		}
		role = parsed
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	t, err := provisioning.Provision(ctx, model.RoleAdmin, model.CreateTeacherRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     string(role),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to provision account")
	}

	fmt.Printf("\nSuccess! %s account '%s' (%s) created with ID: %s\n", t.Role, t.Name, t.Email, t.ID)
}
