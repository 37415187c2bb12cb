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
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// seed-students fills the roster, either from a CSV/XLSX file in the
// import format or with a sample class for development.
func main() {
	var file string
	flag.StringVar(&file, "file", "", "Roster file (.csv or .xlsx) to import; empty seeds sample students")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if cfg.StoreBackend == config.StoreBackendMemory {
		fmt.Println("Error: STORE_BACKEND=memory keeps records in the server process, nothing to seed")
		os.Exit(1)
	}

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	authz, err := policy.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load access policy")
	}
	rosterService := service.NewRosterService(
		repository.NewStudentRepository(store.NewRedisStore(rdb, log)),
		authz,
		log,
	)

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open roster file")
		}
		defer f.Close()

		res, err := rosterService.Import(ctx, model.RoleAdmin, file, f)
		if err != nil {
			log.Fatal().Err(err).Msg("Roster import failed")
		}
		for _, reason := range res.Skipped {
			fmt.Println("skipped:", reason)
		}
		fmt.Printf("\nImport completed! Added %d students, skipped %d rows.\n", res.Imported, len(res.Skipped))
		return
	}

	fmt.Println("=== Seeding Sample Students ===")

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
		"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
		"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
	}

	successCount := 0
	for i, name := range names {
		req := model.CreateStudentRequest{
			NISN:      fmt.Sprintf("00%08d", i+1),
			Name:      name,
			Class:     "XII-2",
			Gender:    string(model.GenderMale),
			Dormitory: "Asrama Putra",
		}
		// Odd entries are seeded as girls.
		if i%2 != 0 {
			req.Gender = string(model.GenderFemale)
			req.Dormitory = "Asrama Putri"
		}

		if _, err := rosterService.Create(ctx, model.RoleAdmin, req); err != nil {
			fmt.Printf("Error creating student %s (NISN: %s): %v\n", req.Name, req.NISN, err)
			continue
		}
		successCount++
		if successCount%10 == 0 {
			fmt.Printf("Created %d students...\n", successCount)
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", successCount, len(names))
}
