package redis

import (
	"fmt"

	"github.com/mcoot/d2r-multiplay/internal/model"
)

type keys struct {
	prefix string
}

// account returns the key holding one Account as JSON
func (k keys) account(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%s", k.prefix, id)
}

// order returns the key of the LIST of account IDs in display order
func (k keys) order() string {
	return fmt.Sprintf("%s:accounts:order", k.prefix)
}

// settings returns the key holding the Settings as JSON
func (k keys) settings() string {
	return fmt.Sprintf("%s:settings", k.prefix)
}
