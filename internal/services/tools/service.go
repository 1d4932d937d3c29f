// Package tools runs the manual maintenance commands and records every
// invocation in the Log Sink.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/services/logsink"
)

// ConfirmationText must be typed to run a destructive tool
const ConfirmationText = "yes"

// ArgAccount names the argument that selects an identity
const ArgAccount = "account"

// Tool describes one maintenance command
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Destructive tools require ConfirmationText
	Destructive bool `json:"destructive,omitempty"`
	// NeedsAccount tools take an ArgAccount argument resolved to the identity's credentials
	NeedsAccount bool `json:"needs_account,omitempty"`
}

var catalog = []Tool{
	{Name: "kill_mutexes", Description: "Close the single-instance handles held by running game clients"},
	{Name: "kill_processes", Description: "Terminate all game client processes"},
	{Name: "stop_bnet_processes", Description: "Terminate all Battle.net launcher processes"},
	{Name: "cleanup_archives", Description: "Remove leftover save archives from previous sessions"},
	{Name: "fix_game_permissions", Description: "Repair file permissions on the game directory"},
	{Name: "manual_backup_save", Description: "Back up the launcher configuration"},
	{Name: "manual_delete_config", Description: "Delete the launcher configuration"},
	{Name: "manual_restore_config", Description: "Restore the launcher configuration from backup"},
	{Name: "manual_launch_process", Description: "Start the launcher as an identity without any checks", NeedsAccount: true},
	{Name: "open_user_switch", Description: "Open the OS user switch screen"},
	{Name: "open_lusrmgr", Description: "Open local users and groups"},
	{Name: "open_netplwiz", Description: "Open user account settings"},
	{Name: "nuke_reset", Description: "Stop everything and wipe all launcher state", Destructive: true},
}

// AccountGetter resolves identities for account-scoped tools
type AccountGetter interface {
	Get(ctx context.Context, id model.AccountID) (*model.Account, error)
}

// Service runs maintenance tools through the agent
type Service struct {
	backend  backend.Backend
	accounts AccountGetter
	sink     *logsink.Sink
	logger   *slog.Logger
	tools    map[string]Tool
}

// New creates a tools Service
func New(backend backend.Backend, accounts AccountGetter, sink *logsink.Sink, logger *slog.Logger) *Service {
	byName := make(map[string]Tool, len(catalog))
	for _, t := range catalog {
		byName[t.Name] = t
	}
	return &Service{
		backend:  backend,
		accounts: accounts,
		sink:     sink,
		logger:   logger.With(slog.String("component", "tools")),
		tools:    byName,
	}
}

// Tools lists the available tools
func (s *Service) Tools() []Tool {
	out := make([]Tool, len(catalog))
	copy(out, catalog)
	return out
}

// Run invokes a tool and returns its one-line summary
func (s *Service) Run(ctx context.Context, name string, args map[string]string, confirm string) (string, error) {
	tool, ok := s.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownTool, name)
	}

	if tool.Destructive && !strings.EqualFold(strings.TrimSpace(confirm), ConfirmationText) {
		s.sink.Error(model.LogCategoryManual, "Confirmation failed. Typed: "+confirm)
		return "", model.ErrConfirmationRequired
	}

	s.sink.Info(model.LogCategoryManual, fmt.Sprintf("> %s%s...", name, formatArgs(args)))

	callArgs := args
	if tool.NeedsAccount {
		resolved, err := s.accountArgs(ctx, args)
		if err != nil {
			s.sink.Error(model.LogCategoryManual, "✖ Error: "+err.Error())
			return "", err
		}
		callArgs = resolved
	}

	result, err := s.backend.RunTool(ctx, name, callArgs)
	if err != nil {
		s.logger.Warn("tool failed", slog.String("tool", name), slog.String("error", err.Error()))
		s.sink.Error(model.LogCategoryManual, "✖ Error: "+err.Error())
		return "", err
	}

	s.sink.Success(model.LogCategoryManual, "✔ "+result)
	return result, nil
}

func (s *Service) accountArgs(ctx context.Context, args map[string]string) (map[string]string, error) {
	id := args[ArgAccount]
	if id == "" {
		return nil, fmt.Errorf("%w: missing %q argument", model.ErrInvalidAccount, ArgAccount)
	}
	account, err := s.accounts.Get(ctx, model.AccountID(id))
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"username": account.WinUser,
		"password": account.WinPass,
	}, nil
}

// formatArgs renders caller arguments for the log; credentials never reach it
func formatArgs(args map[string]string) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return " (" + string(data) + ")"
}
