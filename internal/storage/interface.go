package storage

import (
	"context"

	"github.com/mcoot/d2r-multiplay/internal/model"
)

// Storage defines the interface for configuration persistence
type Storage interface {
	// Account operations. ListAccounts returns accounts in display order;
	// SaveAccount appends new accounts and replaces existing ones in place.
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	DeleteAccount(ctx context.Context, id model.AccountID) error
	SetAccountOrder(ctx context.Context, ids []model.AccountID) error

	// Settings operations. GetSettings returns zero settings when none were saved.
	GetSettings(ctx context.Context) (*model.Settings, error)
	SaveSettings(ctx context.Context, settings *model.Settings) error

	Close() error
}

// CheckOrder verifies that ids is a permutation of current
func CheckOrder(ids, current []model.AccountID) error {
	if len(ids) != len(current) {
		return model.ErrInvalidOrder
	}
	remaining := make(map[model.AccountID]bool, len(current))
	for _, id := range current {
		remaining[id] = true
	}
	for _, id := range ids {
		if !remaining[id] {
			return model.ErrInvalidOrder
		}
		delete(remaining, id)
	}
	return nil
}
