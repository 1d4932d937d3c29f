// Package backend is the boundary to the privileged agent that performs
// process launches, OS user management and file-system maintenance.
package backend

import (
	"context"

	"github.com/mcoot/d2r-multiplay/internal/model"
)

// ConflictAction selects how the agent clears a launch conflict
type ConflictAction string

const (
	ConflictDelete ConflictAction = "delete" // remove the conflicting archive only
	ConflictReset  ConflictAction = "reset"  // full cleanup of launcher state
)

// Backend is the set of agent operations the companion core consumes.
// Launch failures are returned as *LaunchError; every other failure is an
// opaque error that callers log and treat as final.
type Backend interface {
	Launch(ctx context.Context, account model.Account, gamePath string, mode model.LaunchMode, force bool) (string, error)
	ResolveConflict(ctx context.Context, accountID model.AccountID, action ConflictAction) error
	GetInfraHealth(ctx context.Context, accounts []model.Account) (*model.InfraHealth, error)
	GetAccountsProcessStatus(ctx context.Context, usernames []string) (map[string]model.AccountStatus, error)
	OpenUserSwitch(ctx context.Context) error

	CheckUserInitialization(ctx context.Context, username string) (bool, error)
	CreateOSUser(ctx context.Context, username, password string, neverExpires bool) error
	SetPasswordNeverExpires(ctx context.Context, username string, neverExpires bool) error
	ListOSUsers(ctx context.Context, deepScan bool) ([]string, error)
	Whoami(ctx context.Context) (string, error)

	// RunTool invokes a named maintenance command and returns its summary line
	RunTool(ctx context.Context, name string, args map[string]string) (string, error)
}
