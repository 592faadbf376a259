package seeders

import (
	"context"
	"database/sql"
	"log"

	"github.com/cradoe/gopass"
)

// seedDemoAccounts creates a couple of demo users, each with a wallet, so a
// fresh development database has accounts to exercise the API against.
// Re-running the seeder is safe; existing emails are skipped.
func (seeder *Seeder) seedDemoAccounts() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := seeder.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		log.Fatalf("Failed to start transaction: %v", err)
	}

	accounts := []struct {
		FirstName   string
		LastName    string
		Email       string
		PhoneNumber string
		Password    string
	}{
		{
			FirstName:   "Ada",
			LastName:    "Obi",
			Email:       "ada.obi@example.org",
			PhoneNumber: "+2348012345678",
			Password:    "Sup3r-secret!",
		},
		{
			FirstName:   "Chidi",
			LastName:    "Eze",
			Email:       "chidi.eze@example.org",
			PhoneNumber: "+2348087654321",
			Password:    "Sup3r-secret!",
		},
	}

	for _, account := range accounts {
		var existingID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, account.Email).Scan(&existingID)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			tx.Rollback()
			log.Fatalf("Failed to check for existing user '%s': %v", account.Email, err)
		}

		hashedPassword, err := gopass.Hash(account.Password)
		if err != nil {
			tx.Rollback()
			log.Fatalf("Failed to hash password for '%s': %v", account.Email, err)
		}

		var userID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (first_name, last_name, email, phone_number, hashed_password)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id;`,
			account.FirstName, account.LastName, account.Email, account.PhoneNumber, hashedPassword,
		).Scan(&userID)
		if err != nil {
			tx.Rollback()
			log.Fatalf("Failed to insert demo user '%s': %v", account.Email, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallets (user_id)
			VALUES ($1)
			ON CONFLICT DO NOTHING;`,
			userID,
		)
		if err != nil {
			tx.Rollback()
			log.Fatalf("Failed to insert wallet for '%s': %v", account.Email, err)
		}
	}

	if err = tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}
}
