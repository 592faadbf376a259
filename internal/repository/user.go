package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type User struct {
	ID             int64        `db:"id"`
	FirstName      string       `db:"first_name"`
	LastName       string       `db:"last_name"`
	Email          string       `db:"email"`
	PhoneNumber    string       `db:"phone_number"`
	HashedPassword string       `db:"hashed_password"`
	Status         string       `db:"status"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      sql.NullTime `db:"updated_at"`
}

const UserAccountActiveStatus = "active"

type UserRepository interface {
	Insert(user *User, tx *sqlx.Tx) (int64, error)
	GetOne(id int64) (*User, bool, error)
	GetByEmail(email string) (*User, bool, error)
}

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (repo *UserRepositoryImpl) Insert(user *User, tx *sqlx.Tx) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id int64

	query := `
		INSERT INTO users (first_name, last_name, email, phone_number, hashed_password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.PhoneNumber,
			user.HashedPassword,
		).Scan(&id)
		if err != nil {
			return 0, err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.PhoneNumber,
			user.HashedPassword,
		)

		if err != nil {
			return 0, err
		}
	}

	return id, nil
}

func (repo *UserRepositoryImpl) GetOne(id int64) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `
        SELECT id, first_name, last_name, email, phone_number, hashed_password, status, created_at, updated_at
        FROM users WHERE id=$1`

	err := repo.db.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) GetByEmail(email string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `
        SELECT id, first_name, last_name, email, phone_number, hashed_password, status, created_at, updated_at
        FROM users WHERE email=$1`

	err := repo.db.GetContext(ctx, &user, query, email)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}
