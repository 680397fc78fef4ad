package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
	"visitdesk/app/config"

	_ "github.com/lib/pq"
)

type RepositoryAdapter struct {
	db      *sql.DB
	User    *UserRepository
	Chat    *ChatRepository
	Message *MessageRepository
}

func NewRepositoryAdapter(cfg config.DatabaseConfig, logger *slog.Logger) (*RepositoryAdapter, error) {
	connection := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	userRepo, err := NewUserRepository(db)
	if err != nil {
		return nil, err
	}

	chatRepo, err := NewChatRepository(db)
	if err != nil {
		return nil, err
	}

	messageRepo, err := NewMessageRepository(db)
	if err != nil {
		return nil, err
	}

	logger.Info("repository adapter initialized", "host", cfg.Host, "dbname", cfg.DBName)

	return &RepositoryAdapter{db: db, User: userRepo, Chat: chatRepo, Message: messageRepo}, nil
}

func (r *RepositoryAdapter) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *RepositoryAdapter) Close() error {
	return r.db.Close()
}
