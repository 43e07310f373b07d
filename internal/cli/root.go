package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"option-strategist/internal/agents"
	"option-strategist/internal/config"
	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/logging"
	"option-strategist/internal/security"
	"option-strategist/internal/store"
	"option-strategist/internal/strategy"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-01-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.DataStore
	Engine    *strategy.Engine
	Agent     *agents.StrategyAgent
	LLMClient agents.LLMClient
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config directory before any subcommand runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{
		Config: cfg,
		Logger: logger,
	})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strategist",
		Short: "Option strategist - validate and price multi-leg option strategies",
		Long: `Option strategist turns generated multi-leg option strategies into
validated, priced positions.

Legs are snapped onto the tradable chain, priced from a precomputed
pricing table, and summarized with max profit, max loss and breakeven.
Strategies can be read from a file, proposed by an LLM, or served over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				dir, _ := cmd.Flags().GetString("config")
				loaded, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = loaded
				app.Logger = logging.NewLoggerWithConfig(loaded.Logging)
			}

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}

			app.init()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/option-strategist)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addPricingCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addServeCommand(rootCmd, app)

	return rootCmd
}

// init wires the engine, store and generator from the loaded config.
func (app *App) init() {
	cfg := app.Config

	app.Engine = strategy.NewEngine(strategy.Options{
		MaxStrategies:      cfg.Engine.MaxStrategies,
		ContractMultiplier: cfg.Engine.ContractMultiplier,
		DefaultProbability: cfg.Engine.DefaultProbability,
	}, app.Logger)

	if app.Store == nil && cfg.Data.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Data.DatabasePath), 0755); err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to create data directory")
		}
		dataStore, err := store.NewSQLiteStore(cfg.Data.DatabasePath)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
		} else {
			app.Store = dataStore
			app.Logger.Debug().Str("path", cfg.Data.DatabasePath).Msg("SQLite store initialized")
		}
	}

	if app.LLMClient == nil && cfg.HasGenerator() {
		opts := []agents.OpenAIOption{agents.WithJSONMode(), agents.WithTimeout(cfg.Agents.Timeout)}
		if cfg.Credentials.OpenAI.BaseURL != "" {
			opts = append(opts, agents.WithBaseURL(cfg.Credentials.OpenAI.APIKey, cfg.Credentials.OpenAI.BaseURL))
		}
		app.LLMClient = agents.NewOpenAIClient(cfg.Credentials.OpenAI.APIKey, cfg.Agents.Model, opts...)
		app.Logger.Debug().Str("model", cfg.Agents.Model).Msg("OpenAI LLM client initialized")
	}

	if app.LLMClient != nil {
		var knowledge string
		if cfg.Agents.KnowledgeBasePath != "" {
			kb, err := agents.LoadKnowledgeBase(cfg.Agents.KnowledgeBasePath)
			if err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to load knowledge base, continuing without it")
			}
			knowledge = kb
		}
		generator := agents.NewStrategyGenerator(app.LLMClient, knowledge, cfg.Agents.RequestsPerMinute, app.Logger)
		app.Agent = agents.NewStrategyAgent(generator, app.Engine, app.Logger)
	}
}

func (app *App) close() {
	if app.Store == nil {
		return
	}
	if err := app.Store.Close(); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to close store")
	}
	app.Store = nil
}

// marketData picks the chain and pricing source for a symbol: an explicit
// snapshot file, then <snapshot_dir>/<SYMBOL>.json, then the store.
func (app *App) marketData(symbol, snapshotPath string) (store.MarketData, error) {
	if snapshotPath == "" && app.Config.Data.SnapshotDir != "" {
		candidate := filepath.Join(app.Config.Data.SnapshotDir, symbol+".json")
		if _, err := os.Stat(candidate); err == nil {
			snapshotPath = candidate
		}
	}

	if snapshotPath != "" {
		snap, err := store.LoadSnapshot(snapshotPath)
		if err != nil {
			return nil, err
		}
		app.Logger.Debug().Str("symbol", symbol).Str("snapshot", snapshotPath).Msg("Using snapshot market data")
		return store.NewSnapshotProvider(snap), nil
	}

	if app.Store == nil {
		return nil, errStoreUnavailable
	}
	return app.Store, nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Option Strategist v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redactedConfig(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.Dir})
			} else {
				output.Println(app.Config.Dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	cmd.AddCommand(newConfigSetKeyCmd(app))

	return cmd
}

func newConfigSetKeyCmd(app *App) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store the OpenAI API key in the encrypted vault",
		Long: `Read an OpenAI API key from stdin and store it encrypted in
credentials.enc, using the master password from ` + config.MasterPasswordEnv + `.
The key is used whenever OPENAI_API_KEY is unset.`,
		Example: `  echo "$KEY" | STRATEGIST_MASTER_PASSWORD=... strategist config set-key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			password := os.Getenv(config.MasterPasswordEnv)
			if password == "" {
				return apperrors.NewValidationError(config.MasterPasswordEnv, "", "master password not set")
			}

			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			key := strings.TrimSpace(string(data))
			if key == "" {
				return apperrors.NewValidationError("api_key", "", "no key on stdin")
			}

			vault := security.NewVault(app.Config.Dir)
			if err := vault.Save(password, security.VaultCredentials{OpenAIKey: key, OpenAIBaseURL: baseURL}); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"path": vault.Path(), "api_key": security.MaskCredential(key)})
			}
			output.Success("✓ Stored %s in %s", security.MaskCredential(key), vault.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "OpenAI-compatible endpoint to store with the key")

	return cmd
}

// redactedConfig returns a copy of cfg with credentials masked.
func redactedConfig(cfg *config.Config) config.Config {
	c := *cfg
	c.Credentials.OpenAI.APIKey = security.MaskCredential(c.Credentials.OpenAI.APIKey)
	return c
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine")
	output.Printf("  Max Strategies:      %d\n", cfg.Engine.MaxStrategies)
	output.Printf("  Contract Multiplier: %d\n", cfg.Engine.ContractMultiplier)
	output.Printf("  Default Probability: %s\n", FormatProbability(cfg.Engine.DefaultProbability))
	output.Println()

	output.Bold("Data")
	output.Printf("  Database:     %s\n", cfg.Data.DatabasePath)
	output.Printf("  Snapshot Dir: %s\n", cfg.Data.SnapshotDir)
	output.Println()

	output.Bold("Server")
	output.Printf("  Address: %s\n", cfg.Server.Addr)
	output.Println()

	output.Bold("Generator")
	output.Printf("  Model:         %s\n", cfg.Agents.Model)
	output.Printf("  Rate Limit:    %d req/min\n", cfg.Agents.RequestsPerMinute)
	output.Printf("  Timeout:       %s\n", cfg.Agents.Timeout)
	if cfg.Credentials.OpenAI.APIKey != "" {
		output.Printf("  API Key:       %s\n", security.MaskCredential(cfg.Credentials.OpenAI.APIKey))
	} else {
		output.Printf("  API Key:       %s\n", output.DimText("not set (suggest disabled)"))
	}
	if cfg.Agents.KnowledgeBasePath != "" {
		output.Printf("  Knowledge Base: %s\n", cfg.Agents.KnowledgeBasePath)
	}
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File {
		output.Printf("  File:  %s\n", cfg.Logging.FilePath)
	}
}

// commandContext returns the command context, falling back to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
