// Package cli implements toolshubctl, a terminal client for the toolshub
// marketplace.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/toolshub/internal/logging"
	"github.com/dukerupert/toolshub/internal/marketplace"
	"github.com/dukerupert/toolshub/internal/rpcclient"
)

type app struct {
	configPath string
	baseURL    string
	logLevel   string

	cfg    Config
	client *rpcclient.Client
	logger *slog.Logger
	out    io.Writer
}

// load reads the config file and applies flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
		a.configPath = p
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, "text")
	a.client = rpcclient.New(cfg.BaseURL, rpcclient.WithToken(cfg.SessionToken))
	return nil
}

func (a *app) save() error {
	a.cfg.SessionToken = a.client.Token()
	return SaveConfig(a.configPath, a.cfg)
}

// marketplace builds a marketplace for the signed-in user.
func (a *app) marketplace(ctx context.Context) (*marketplace.Marketplace, error) {
	if a.cfg.SessionToken == "" {
		return nil, fmt.Errorf("not logged in, run toolshubctl login first")
	}
	me, err := a.client.Me(ctx)
	if err != nil {
		return nil, describe(err)
	}
	user := marketplace.User{
		ID:               me.ID,
		Name:             me.Name,
		Email:            me.Email,
		ConnectAccountID: me.StripeConnectAccountID,
		ConnectStatus:    me.ConnectStatus,
	}
	return marketplace.New(a.client, terminal{out: a.out}, user, a.logger), nil
}

// describe prefixes marketplace errors with the title a user would see.
func describe(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", marketplace.Title(err), err)
}

// terminal shows navigation targets and notifications as text.
type terminal struct {
	out io.Writer
}

func (t terminal) Navigate(url string) error {
	_, err := fmt.Fprintf(t.out, "Open this link to continue:\n  %s\n", url)
	return err
}

func (t terminal) ReplaceURL(url string) {
	fmt.Fprintf(t.out, "Cleaned URL: %s\n", url)
}

func (t terminal) Notify(n marketplace.Notification) {
	fmt.Fprintf(t.out, "[%s] %s: %s\n", strings.ToUpper(n.Level), n.Title, n.Message)
}
