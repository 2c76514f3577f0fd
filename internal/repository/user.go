package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

var ErrNotFound = errors.New("not found")

const userCols = `user_name, first_name, COALESCE(last_name,''), email, role, profile_pic`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetUser(ctx context.Context, userName string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetUser", time.Now())()
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE user_name = $1`, userName,
	).Scan(&u.UserName, &u.FirstName, &u.LastName, &u.EMail, &u.Role, &u.ProfilePic)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetUser: %w", err)
	}
	return u, nil
}

func (r *UserRepository) InsertUser(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("user.InsertUser", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_name, first_name, last_name, email, role, profile_pic)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.UserName, u.FirstName, u.LastName, u.EMail, u.Role, u.ProfilePic,
	)
	if err != nil {
		return fmt.Errorf("userRepo.InsertUser: %w", err)
	}
	return nil
}
