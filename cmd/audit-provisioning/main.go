package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/database"
	"github.com/stemsi/perizinan-backend/internal/logger"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// audit-provisioning lists identities, role records and account records
// that do not line up, e.g. after a provisioning whose rollback failed.
// With -requeue, identities without a role record are handed to the
// compensation worker for deletion.
func main() {
	var requeue bool
	flag.BoolVar(&requeue, "requeue", false, "Queue identities without a role record for deletion")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

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
	identities := repository.NewIdentityRepository(pool)
	compensation := repository.NewCompensationRepository(rdb)
	gateway := service.NewIdentityGateway(cfg, identities, repository.NewSessionTokenRepository(rdb), log)
	provisioning := service.NewProvisioningService(
		gateway,
		repository.NewUserRepository(records),
		repository.NewTeacherRepository(records),
		compensation,
		authz,
		log,
	)

	fmt.Println("=== Provisioning Audit ===")

	report, err := provisioning.Audit(ctx, identities)
	if err != nil {
		log.Fatal().Err(err).Msg("Audit failed")
	}

	if report.Clean() {
		fmt.Println("No inconsistencies found.")
		return
	}

	for _, i := range report.IdentitiesWithoutRole {
		fmt.Printf("identity without role record:   %s (%s)\n", i.ID, i.Email)
	}
	for _, id := range report.RolesWithoutAccount {
		fmt.Printf("role record without account:    %s\n", id)
	}
	for _, t := range report.AccountsWithoutRole {
		fmt.Printf("account without role record:    %s (%s)\n", t.ID, t.Email)
	}
	for _, t := range report.AccountsWithoutIdentity {
		fmt.Printf("account without identity:       %s (%s)\n", t.ID, t.Email)
	}

	if n, err := compensation.Len(ctx); err == nil && n > 0 {
		fmt.Printf("\n%d identity(ies) already waiting in the compensation queue.\n", n)
	}

	if !requeue {
		os.Exit(1)
	}

	queued := 0
	for _, i := range report.IdentitiesWithoutRole {
		if err := compensation.Enqueue(ctx, repository.OrphanIdentity{IdentityID: i.ID, Email: i.Email, QueuedAt: time.Now()}); err != nil {
			log.Error().Err(err).Str("identity_id", i.ID).Msg("Failed to queue identity")
			continue
		}
		queued++
	}
	fmt.Printf("\nQueued %d identity(ies) for deletion.\n", queued)
}
