// Seeding tool for demo accounts with phone numbers, so simulations have a
// target out of the box.
//
// Env overrides: SEED_NAME, SEED_EMAIL, SEED_PHONE, SEED_IMEI.
package main

import (
	"context"
	goerrors "errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"simtinel/internal/device"
	"simtinel/internal/domain"
	"simtinel/internal/repository/postgres"
	"simtinel/pkg/config"
	"simtinel/pkg/errors"
	"simtinel/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("seed")

	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	accountRepo := postgres.NewAccountRepository(db)
	deviceEventRepo := postgres.NewDeviceEventRepository(db)
	deviceService := device.NewService(deviceEventRepo, log)
	ctx := context.Background()

	seeds := []struct {
		name  string
		email string
		phone string
		imei  string
	}{
		{
			name:  getenv("SEED_NAME", "Asha Verma"),
			email: getenv("SEED_EMAIL", "asha.verma@example.com"),
			phone: getenv("SEED_PHONE", "9876543210"),
			imei:  getenv("SEED_IMEI", "356938035643809"),
		},
		{
			name:  "Ravi Kumar",
			email: "ravi.kumar@example.com",
			phone: "9812345678",
			imei:  "490154203237518",
		},
	}

	for _, s := range seeds {
		account, err := ensureAccount(ctx, accountRepo, s.name, s.email, s.phone)
		if err != nil {
			log.Fatal("Failed to seed account", map[string]interface{}{
				"email": s.email,
				"error": err.Error(),
			})
		}
		status, _, err := deviceService.Register(ctx, account.ID, s.imei, "Mumbai")
		if err != nil {
			log.Fatal("Failed to seed device", map[string]interface{}{
				"email": s.email,
				"error": err.Error(),
			})
		}
		log.Info("Seeded account", map[string]interface{}{
			"account_id": account.ID.String(),
			"name":       account.Name,
			"device":     string(status),
		})
	}
}

func ensureAccount(ctx context.Context, repo *postgres.AccountRepository, name, email, phone string) (*domain.Account, error) {
	account := &domain.Account{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Phone:     &phone,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := repo.Create(ctx, account)
	if goerrors.Is(err, errors.ErrAccountExists) {
		existing, ferr := repo.FindByPhone(ctx, phone)
		if ferr != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
