// Package sqlite persists the configuration in a local SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/storage"
)

// Config holds SQLite settings
type Config struct {
	// Path is the database file; ":memory:" or a file: URI is also accepted
	Path string
	// Debug logs every SQL statement
	Debug bool
}

// DefaultConfig returns default SQLite settings
func DefaultConfig() Config {
	return Config{
		Path: "multiplay.db",
	}
}

// Storage is a gorm-backed implementation of the storage interface
type Storage struct {
	db *gorm.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// New opens the database and migrates the schema
func New(cfg Config) (*Storage, error) {
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&accountRow{}, &settingsRow{}); err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing accountRow
		err := tx.First(&existing, "id = ?", string(account.ID)).Error
		switch {
		case err == nil:
			row := toRow(account, existing.Position)
			return tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			var next int
			if err := tx.Model(&accountRow{}).Select("COALESCE(MAX(position), -1) + 1").Scan(&next).Error; err != nil {
				return err
			}
			row := toRow(account, next)
			return tx.Create(&row).Error
		default:
			return err
		}
	})
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	var row accountRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}
	account := row.toModel()
	return &account, nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var rows []accountRow
	if err := s.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]model.Account, len(rows))
	for i, r := range rows {
		accounts[i] = r.toModel()
	}
	return accounts, nil
}

func (s *Storage) DeleteAccount(ctx context.Context, id model.AccountID) error {
	return s.db.WithContext(ctx).Delete(&accountRow{}, "id = ?", string(id)).Error
}

func (s *Storage) SetAccountOrder(ctx context.Context, ids []model.AccountID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []string
		if err := tx.Model(&accountRow{}).Order("position ASC").Pluck("id", &current).Error; err != nil {
			return err
		}
		currentIDs := make([]model.AccountID, len(current))
		for i, id := range current {
			currentIDs[i] = model.AccountID(id)
		}
		if err := storage.CheckOrder(ids, currentIDs); err != nil {
			return err
		}

		for pos, id := range ids {
			if err := tx.Model(&accountRow{}).Where("id = ?", string(id)).Update("position", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Settings operations

func (s *Storage) GetSettings(ctx context.Context) (*model.Settings, error) {
	var row settingsRow
	err := s.db.WithContext(ctx).First(&row, settingsRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.Settings{}, nil
		}
		return nil, err
	}
	return &model.Settings{
		GamePath:          row.GamePath,
		LastActiveAccount: model.AccountID(row.LastActiveAccount),
		Preferences:       row.Preferences,
	}, nil
}

func (s *Storage) SaveSettings(ctx context.Context, settings *model.Settings) error {
	row := settingsRow{
		ID:                settingsRowID,
		GamePath:          settings.GamePath,
		LastActiveAccount: string(settings.LastActiveAccount),
		Preferences:       settings.Preferences,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}
