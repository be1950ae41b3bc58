package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexx/mediacenter/internal/config"
	"github.com/nexx/mediacenter/internal/constants"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mediacenter configuration",
		Long: `Configuration management commands for mediacenter.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  set   - Change one setting
  test  - Test API connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

// askDefault reads a value, returning def for an empty answer.
func askDefault(r *bufio.Reader, w io.Writer, question, def string) (string, error) {
	prompt := question + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", question, def)
	}
	v, err := readLine(r, w, prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

// askRequired repeats the question until a value is given.
func askRequired(w io.Writer, ask func() (string, error), what string) (string, error) {
	for {
		v, err := ask()
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
		fmt.Fprintf(w, "  Error: %s is required\n", what)
	}
}

// runConfigInit fills cfg from answers read from r. secret reads the
// token without echo.
func runConfigInit(r *bufio.Reader, w io.Writer, secret func(prompt string) (string, error), cfg *config.Config) error {
	fmt.Fprintln(w, "Media Center Configuration Setup")
	fmt.Fprintln(w, "================================")
	fmt.Fprintln(w)

	var err error
	if cfg.APIURL, err = askRequired(w, func() (string, error) {
		return askDefault(r, w, "API URL", cfg.APIURL)
	}, "API URL"); err != nil {
		return err
	}
	if cfg.Token, err = askRequired(w, func() (string, error) {
		v, err := secret("Token (required): ")
		if v == "" && err == nil && cfg.Token != "" {
			return cfg.Token, nil
		}
		return v, err
	}, "token"); err != nil {
		return err
	}
	if cfg.EntityID, err = askDefault(r, w, "Entity ID", cfg.EntityID); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Display Settings (press Enter for defaults)")
	fmt.Fprintln(w, "-------------------------------------------")
	settings := []struct{ key, question string }{
		{"language", "Language (en, fa)"},
		{"page_size", fmt.Sprintf("Rows per page %v", constants.AllowedPageSizes)},
		{"size_mode", "Size column (formatted, raw)"},
	}
	for _, s := range settings {
		cur, _ := cfg.Get(s.key, true)
		v, err := askDefault(r, w, s.question, cur)
		if err != nil {
			return err
		}
		if err := cfg.Set(s.key, v); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	if confirm(r, w, "Configure proxy?") {
		fmt.Fprintln(w, "Proxy modes: no-proxy, system, basic, ntlm")
		if cfg.ProxyMode, err = askDefault(r, w, "Proxy mode", config.ProxySystem); err != nil {
			return err
		}
		if cfg.ProxyMode != config.ProxyNone {
			if cfg.ProxyHost, err = askDefault(r, w, "Proxy host", cfg.ProxyHost); err != nil {
				return err
			}
			port, err := askDefault(r, w, "Proxy port", strconv.Itoa(cfg.ProxyPort))
			if err != nil {
				return err
			}
			if cfg.ProxyPort, err = strconv.Atoi(port); err != nil {
				return fmt.Errorf("proxy port %q is not a number", port)
			}
		}
		if cfg.ProxyMode == config.ProxyBasic || cfg.ProxyMode == config.ProxyNTLM {
			if cfg.ProxyUser, err = askDefault(r, w, "Proxy user", cfg.ProxyUser); err != nil {
				return err
			}
		}
	} else {
		cfg.ProxyMode = config.ProxyNone
	}

	return cfg.Validate()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for mediacenter.

Use --force to overwrite an existing configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			cfg := config.New()
			if _, err := os.Stat(path); err == nil {
				if !force {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
				if cfg, err = config.Load(path); err != nil {
					return err
				}
			}

			secret := func(prompt string) (string, error) { return readPassword(os.Stdin, out, prompt) }
			if err := runConfigInit(bufio.NewReader(os.Stdin), out, secret, cfg); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			GetLogger().Info().Str("path", path).Msg("Configuration saved")

			fmt.Fprintln(out)
			fmt.Fprintf(out, "Configuration saved to: %s\n", path)
			if cfg.ProxyMode == config.ProxyBasic || cfg.ProxyMode == config.ProxyNTLM {
				fmt.Fprintln(out, "The proxy password is not stored; set MEDIACENTER_PROXY_PASSWORD or enter it when asked.")
			}
			fmt.Fprintln(out, "Test your configuration with: mediacenter config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// printConfig writes every key; secrets are masked unless reveal is set.
func printConfig(w io.Writer, cfg *config.Config, reveal bool) {
	section := ""
	for _, key := range config.Keys() {
		sec, name, _ := strings.Cut(key, ".")
		if sec != section {
			if section != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "[%s]\n", sec)
			section = sec
		}
		v, _ := cfg.Get(key, reveal)
		if v == "" {
			v = "<not set>"
		}
		fmt.Fprintf(w, "  %-16s %s\n", name, v)
	}
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration, merged from:
  1. Configuration file
  2. .env in the working directory
  3. Environment variables (MEDIACENTER_*)
  4. Command-line flags

Priority: flags > environment > .env > config file > defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg, reveal)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show secrets in clear text")
	return cmd
}

// setConfigValue applies key=value to the file config and validates
// everything but the required connection settings.
func setConfigValue(cfg *config.Config, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	check := *cfg
	if check.APIURL == "" {
		check.APIURL = "http://localhost"
	}
	if check.Token == "" {
		check.Token = "unset"
	}
	return check.Validate()
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the configuration file",
		Long: fmt.Sprintf(`Change one setting in the configuration file. Keys without a
section refer to the mediacenter section.

Keys:
  %s

Examples:
  mediacenter config set language fa
  mediacenter config set page_size 20
  mediacenter config set proxy.mode system`, strings.Join(config.Keys(), "\n  ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			shown, _ := cfg.Get(args[0], false)
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], shown)
			if strings.HasSuffix(strings.ToLower(args[0]), "proxy.password") {
				fmt.Fprintln(cmd.ErrOrStderr(), "Note: the proxy password is never written to the config file.")
			}
			return nil
		},
	}
	return cmd
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test API connection",
		Long: `Test the API connection by loading the folder listing of the
configured entity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sess, err := newSession()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "API URL: %s\n", sess.Config.APIURL)
			fmt.Fprintln(out, "Testing connection...")

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			folders, err := sess.Folders.LoadFolders(ctx, sess.Config.EntityID, true)
			if err != nil {
				GetLogger().Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}
			GetLogger().Info().Msg("Connection test successful")
			fmt.Fprintln(out, "Connection SUCCESSFUL")
			fmt.Fprintf(out, "  Entity %q has %d folder(s)\n", sess.Config.EntityID, len(folders))
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, path)
			if info, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: file does not exist")
				fmt.Fprintln(out, "Create a configuration file with: mediacenter config init")
			}
			return nil
		},
	}
}
