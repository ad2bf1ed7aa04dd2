package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/mahjong-settlement/internal/session"
)

const uniqueViolation = "23505"

// PostgresStore keeps one row per session plus flattened child tables. Every
// Save rewrites the children inside the transaction that bumps the version.
type PostgresStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPostgresStore(dsn string, log *zap.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("postgres store ready")
	return &PostgresStore{db: db, log: log}, nil
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PostgresStore) Create(ctx context.Context, code string, s session.State) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := sessionRow{Code: code, Name: s.Name}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return session.ErrCodeTaken
			}
			return err
		}
		return insertChildren(tx, toRows(row.ID, s))
	})
}

func (p *PostgresStore) Load(ctx context.Context, code string) (session.State, int, error) {
	db := p.db.WithContext(ctx)

	var row sessionRow
	if err := db.Where("code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.State{}, 0, session.ErrNotFound
		}
		return session.State{}, 0, err
	}

	var rows childRows
	if err := db.Where("session_id = ?", row.ID).First(&rows.rules).Error; err != nil {
		return session.State{}, 0, fmt.Errorf("load rules of %s: %w", code, err)
	}
	find := []struct {
		dest any
		what string
	}{
		{&rows.players, "players"},
		{&rows.rounds, "rounds"},
		{&rows.results, "round results"},
		{&rows.expenses, "expenses"},
		{&rows.shares, "expense shares"},
	}
	for _, f := range find {
		if err := db.Where("session_id = ?", row.ID).Order("position").Find(f.dest).Error; err != nil {
			return session.State{}, 0, fmt.Errorf("load %s of %s: %w", f.what, code, err)
		}
	}
	return fromRows(row.Name, rows), row.Version, nil
}

func (p *PostgresStore) Save(ctx context.Context, code string, s session.State, version int) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		if err := tx.Select("id").Where("code = ?", code).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return session.ErrNotFound
			}
			return err
		}

		res := tx.Model(&sessionRow{}).
			Where("id = ? AND version = ?", row.ID, version-1).
			Updates(map[string]any{"name": s.Name, "version": version})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return session.ErrVersionConflict
		}

		for _, m := range allModels[1:] {
			if err := tx.Where("session_id = ?", row.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return insertChildren(tx, toRows(row.ID, s))
	})
}

func insertChildren(tx *gorm.DB, rows childRows) error {
	if err := tx.Create(&rows.rules).Error; err != nil {
		return err
	}
	// gorm rejects empty batches, so only insert what exists.
	if len(rows.players) > 0 {
		if err := tx.Create(&rows.players).Error; err != nil {
			return err
		}
	}
	if len(rows.rounds) > 0 {
		if err := tx.Create(&rows.rounds).Error; err != nil {
			return err
		}
	}
	if len(rows.results) > 0 {
		if err := tx.Create(&rows.results).Error; err != nil {
			return err
		}
	}
	if len(rows.expenses) > 0 {
		if err := tx.Create(&rows.expenses).Error; err != nil {
			return err
		}
	}
	if len(rows.shares) > 0 {
		if err := tx.Create(&rows.shares).Error; err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
