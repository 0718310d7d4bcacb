package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/wabot/internal/agent"
	"github.com/soyeahso/wabot/internal/config"
	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/gateway"
	"github.com/soyeahso/wabot/internal/history"
	"github.com/soyeahso/wabot/internal/llm"
	"github.com/soyeahso/wabot/internal/prompt"
	"github.com/soyeahso/wabot/internal/routing"
	"github.com/soyeahso/wabot/internal/session"
	"github.com/soyeahso/wabot/internal/store"
	"github.com/soyeahso/wabot/internal/transport/bridge"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: connect to the bridge and serve the control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			ownerDigits, _ := domain.NormalizePhoneNumber(cfg.Owner.Number)

			// Transcript archive (optional SQLite)
			var archive store.Archive = store.NopArchive{}
			if cfg.History.Archive == "sqlite" {
				dbPath := filepath.Join(paths.Data, "wabot.db")
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				archive = store.NewSQLiteArchive(db)
				log.Info().Str("path", dbPath).Msg("using SQLite transcript archive")
			}

			turns := history.NewStore()
			prompts := prompt.NewBuilder(cfg.Bot.Name, cfg.Owner.Name, ownerDigits, turns)
			client := llm.NewOpenAIClient(
				cfg.LLM.APIKey,
				cfg.LLM.Model,
				cfg.LLM.BaseURL,
				time.Duration(cfg.LLM.TimeoutSecs)*time.Second,
			)

			transport := bridge.New(cfg.Transport.BridgeURL, cfg.Transport.AuthToken, log)

			// The dispatcher reads the active flag through a closure so
			// it stays decoupled from the lifecycle manager, which is
			// constructed after it.
			var mgr *session.Manager
			dispatcher := agent.NewDispatcher(
				agent.DispatcherConfig{
					BotName:     cfg.Bot.Name,
					OwnerNumber: ownerDigits,
					MaxTokens:   cfg.LLM.MaxTokens,
					Temperature: cfg.LLM.Temperature,
					LLMTimeout:  time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
				},
				client, transport, turns, prompts, archive,
				func() bool { return mgr.Active() },
				log,
			)

			router := routing.NewRouter(dispatcher, log)
			defer router.Close()

			mgr = session.NewManager(transport, router, session.DefaultBackoff(), log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := mgr.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("session manager exited")
				}
			}()

			srv := gateway.New(cfg.Gateway, mgr, turns, log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override control API port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
