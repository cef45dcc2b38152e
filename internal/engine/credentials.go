package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/bday/internal/config"
	"github.com/zalando/go-keyring"
)

// ResolvePassword picks the password for a remote import.
// An explicit password wins and is stored in the system keyring when save is set;
// otherwise the keyring entry for user is used. A missing entry yields "".
func ResolvePassword(user, explicit string, save bool) (string, error) {
	if explicit != "" {
		if save && user != "" {
			if err := keyring.Set(config.KeyringService, user, explicit); err != nil {
				return "", fmt.Errorf("%s: %w", config.ErrKeyring, err)
			}
			slog.Debug(config.MsgKeyringSaved,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyUser, user)
		}
		return explicit, nil
	}
	if user == "" {
		return "", nil
	}

	pass, err := keyring.Get(config.KeyringService, user)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Warn(config.MsgKeyringMiss,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyUser, user,
				config.LogKeyError, err)
		}
		return "", nil
	}
	return pass, nil
}
