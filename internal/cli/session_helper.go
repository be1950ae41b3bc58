package cli

import (
	"fmt"
	"os"

	"github.com/nexx/mediacenter/internal/api"
	"github.com/nexx/mediacenter/internal/config"
	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/http"
	"github.com/nexx/mediacenter/internal/services"
)

// loadConfig resolves the config file, .env and environment, then applies
// the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(cfgFile)
	if err != nil {
		return nil, err
	}
	overrides := map[string]string{
		"api_url":   apiURL,
		"token":     token,
		"entity_id": entityID,
		"language":  lang,
	}
	for k, v := range overrides {
		if v == "" {
			continue
		}
		if err := cfg.Set(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newSession loads and validates the config and wires the services.
// A missing proxy password is prompted for on a terminal.
func newSession() (*services.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w (run 'mediacenter config init')", err)
	}

	if http.NeedsProxyPassword(cfg) {
		pw, err := readPassword(os.Stdin, os.Stderr, fmt.Sprintf("Proxy password for %s: ", cfg.ProxyUser))
		if err != nil {
			return nil, fmt.Errorf("proxy password: %w", err)
		}
		cfg.ProxyPassword = pw
	}

	sess, err := services.NewSession(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// withFolderPassword runs fn and, while it fails with 403 on a protected
// folder, asks for the folder password and runs it again.
func withFolderPassword(sess *services.Session, folderID int, fn func() error) error {
	err := fn()
	for attempt := 0; attempt < constants.MaxFolderPasswordAttempts; attempt++ {
		if err == nil || !api.IsForbidden(err) {
			return err
		}
		rec, ok := sess.Folders.Tree().Lookup(folderID)
		if !ok || !rec.PasswordRequired {
			return err
		}
		pw, perr := readPassword(os.Stdin, os.Stderr, fmt.Sprintf("Password for folder %q: ", rec.Name))
		if perr != nil {
			return perr
		}
		if uerr := sess.Folders.Unlock(folderID, pw); uerr != nil {
			return uerr
		}
		err = fn()
	}
	return err
}
