package command

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adamavenir/gchat/internal/api"
	"github.com/adamavenir/gchat/internal/core"
	"github.com/adamavenir/gchat/internal/db"
	"github.com/adamavenir/gchat/internal/session"
	"github.com/adamavenir/gchat/internal/types"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Config   core.Config
	Logger   zerolog.Logger
	Store    *session.Store
	Session  *session.Session
	Client   *api.Client
	JSONMode bool

	logCloser io.Closer
}

// Close releases the store and the log file.
func (c *CommandContext) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}

// GetContext loads config, logging and the stored session. With
// requireAuth the session must be valid and Client carries its token;
// otherwise Client is unauthenticated.
func GetContext(cmd *cobra.Command, requireAuth bool) (*CommandContext, error) {
	configPath, _ := cmd.Flags().GetString("config")
	apiURL, _ := cmd.Flags().GetString("api")
	jsonMode, _ := cmd.Flags().GetBool("json")

	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	logger, logCloser, err := core.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	logger = logger.With().Str("command", cmd.Name()).Logger()

	ctx := &CommandContext{
		Config:    cfg,
		Logger:    logger,
		JSONMode:  jsonMode,
		logCloser: logCloser,
	}

	home, err := core.EnsureHomeDir()
	if err != nil {
		ctx.Close()
		return nil, err
	}
	store, err := session.OpenStore(filepath.Join(home, db.DBFileName))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("open state: %w", err)
	}
	ctx.Store = store

	if requireAuth {
		sess, err := store.Current(time.Now())
		if err != nil {
			ctx.Close()
			return nil, err
		}
		ctx.Session = sess
	}

	token := ""
	if ctx.Session != nil {
		token = ctx.Session.Access
	}
	client, err := api.NewClient(api.Options{
		BaseURL: cfg.APIURL,
		Token:   token,
		Timeout: cfg.RequestTimeout.Std(),
		RPS:     cfg.RateLimit.RPS,
		Burst:   cfg.RateLimit.Burst,
		Logger:  logger,
	})
	if err != nil {
		ctx.Close()
		return nil, err
	}
	ctx.Client = client
	return ctx, nil
}

// checkAuth clears the stored session when err is an authentication
// failure, so the next command asks for a login.
func (c *CommandContext) checkAuth(err error) error {
	if api.IsUnauthorized(err) {
		if clearErr := c.Store.Clear(); clearErr != nil {
			c.Logger.Warn().Err(clearErr).Msg("clear session")
		}
		return fmt.Errorf("session rejected by the service: %w", session.ErrNotAuthenticated)
	}
	return err
}

// resolveGroup parses an explicit group argument or falls back to the last
// group used. The resolved group is remembered.
func (c *CommandContext) resolveGroup(args []string) (types.ID, error) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	} else {
		last, err := db.GetConfig(c.Store.DB(), db.ConfigLastGroup)
		if err != nil {
			return 0, err
		}
		if last == "" {
			return 0, errors.New("group is required")
		}
		raw = last
	}
	id, err := types.ParseID(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid group id: %s", raw)
	}
	c.rememberGroup(id)
	return id, nil
}

func (c *CommandContext) rememberGroup(id types.ID) {
	if err := db.SetConfig(c.Store.DB(), db.ConfigLastGroup, strconv.FormatInt(int64(id), 10)); err != nil {
		c.Logger.Debug().Err(err).Msg("remember last group")
	}
}
