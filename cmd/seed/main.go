// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"stocktake/internal/core/id"
	"stocktake/internal/core/types"
	"stocktake/internal/domain/ledger"
	"stocktake/internal/infrastructure/storage/postgres"
	"stocktake/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedRoles(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed roles", "error", err)
	}

	adminUserID, err := seedAdminUser(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log, adminUserID); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedRoles(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	roles := []struct {
		code, name, description string
	}{
		{"admin", "Administrator", "Full access including finalize and user management"},
		{"operator", "Warehouse Operator", "Counts stock and saves drafts"},
	}

	for _, r := range roles {
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO roles (id, code, name, description, is_system)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (code) DO NOTHING
		`, id.New(), r.code, r.name, r.description)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.code, err)
		}
	}

	log.Info("roles seeded")
	return nil
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (id.ID, error) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@stocktake.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1 AND deleted_at IS NULL`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return id.Nil(), fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			is_active, is_admin, version
		)
		VALUES ($1, $2, $3, 'System', 'Admin', true, true, 1)
	`, userID, adminEmail, string(passwordHash))
	if err != nil {
		return id.Nil(), fmt.Errorf("insert admin user: %w", err)
	}

	var adminRoleID id.ID
	err = pool.Pool.QueryRow(ctx,
		`SELECT id FROM roles WHERE code = 'admin'`,
	).Scan(&adminRoleID)
	if err != nil {
		log.Warnw("admin role not found, skipping role assignment", "error", err)
	} else {
		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id, granted_by)
			VALUES ($1, $2, NULL)
			ON CONFLICT (user_id, role_id) DO NOTHING
		`, userID, adminRoleID)
		if err != nil {
			log.Warnw("failed to assign admin role", "error", err)
		}
	}

	log.Infow("admin user created", "email", adminEmail, "user_id", userID)
	return userID, nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger, adminUserID id.ID) error {
	log.Info("seeding demo data...")

	// 1. Locations
	locations := []struct {
		name        string
		description string
	}{
		{"Main Warehouse", "Primary storage"},
		{"Production Floor", "Work-in-progress storage"},
		{"Cold Storage", "Temperature-controlled room"},
	}

	locationIDs := make([]id.ID, 0, len(locations))
	for i, l := range locations {
		locID := id.New()
		code := fmt.Sprintf("LOC-%03d", i+1)
		tag, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_locations (id, code, name, description, is_active, version, deletion_mark)
			VALUES ($1, $2, $3, $4, true, 1, false)
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, locID, code, l.name, l.description)
		if err != nil {
			log.Warnw("failed to seed location", "name", l.name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.Pool.QueryRow(ctx, `
				SELECT id FROM cat_locations WHERE code = $1 AND deletion_mark = FALSE
			`, code).Scan(&locID); err != nil {
				log.Warnw("failed to fetch existing location", "code", code, "error", err)
				continue
			}
		}
		locationIDs = append(locationIDs, locID)
	}

	// 2. Materials
	materials := []struct {
		name string
		unit string
	}{
		{"Wheat Flour", "kg"},
		{"Granulated Sugar", "kg"},
		{"Sunflower Oil", "l"},
		{"Cardboard Box 40x30", "pcs"},
		{"Stretch Film", "m"},
		{"Salt", "kg"},
	}

	materialIDs := make([]id.ID, 0, len(materials))
	for i, m := range materials {
		matID := id.New()
		code := fmt.Sprintf("MAT-%05d", i+1)
		tag, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_materials (id, code, name, unit, is_active, version, deletion_mark)
			VALUES ($1, $2, $3, $4, true, 1, false)
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, matID, code, m.name, m.unit)
		if err != nil {
			log.Warnw("failed to seed material", "name", m.name, "error", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			if err := pool.Pool.QueryRow(ctx, `
				SELECT id FROM cat_materials WHERE code = $1 AND deletion_mark = FALSE
			`, code).Scan(&matID); err != nil {
				log.Warnw("failed to fetch existing material", "code", code, "error", err)
				continue
			}
		}
		materialIDs = append(materialIDs, matID)
	}

	// 3. Opening balances: one receipt per material at the first location.
	if len(locationIDs) == 0 || len(materialIDs) == 0 {
		log.Warn("no locations or materials available, skipping opening balances")
		return nil
	}

	var existing int
	if err := pool.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ledger_transactions WHERE reason = $1`,
		ledger.ReasonReceipt,
	).Scan(&existing); err != nil {
		return fmt.Errorf("check existing transactions: %w", err)
	}
	if existing > 0 {
		log.Infow("opening balances already present, skipping", "count", existing)
		return nil
	}

	mainLocation := locationIDs[0]
	for i, matID := range materialIDs {
		qty, err := types.ParseQuantity(fmt.Sprintf("%d.5", (i+1)*10))
		if err != nil {
			return fmt.Errorf("parse opening quantity: %w", err)
		}

		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO ledger_transactions (
				id, material_id, location_id, direction, quantity,
				reason, narrative, created_by
			)
			VALUES ($1, $2, $3, $4, $5, $6, 'Opening balance', $7)
		`, id.New(), matID, mainLocation, string(ledger.DirectionIn), int64(qty),
			ledger.ReasonReceipt, adminUserID)
		if err != nil {
			log.Warnw("failed to seed opening balance", "material_id", matID, "error", err)
		}
	}

	log.Info("demo data seeded successfully")
	return nil
}
