// Package cli командная строка fintools: калькуляторы, портфель фондов,
// список отслеживания, обслуживание хранилища и HTTP-сервер.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloud-ru/mcp-fintools-go/internal/config"
	"github.com/cloud-ru/mcp-fintools-go/internal/navsource"
	"github.com/cloud-ru/mcp-fintools-go/internal/portfolio"
	"github.com/cloud-ru/mcp-fintools-go/internal/server"
	"github.com/cloud-ru/mcp-fintools-go/internal/storage"
	"github.com/cloud-ru/mcp-fintools-go/internal/tools"
	"github.com/cloud-ru/mcp-fintools-go/internal/tracing"
)

// App зависимости команд
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	NAV    tools.NAVSource
	Tracer trace.Tracer

	store       *storage.Service
	closeStore  func() error
	investments *portfolio.InvestmentRepository
	watchlist   *portfolio.WatchlistRepository
	schemes     schemeLookup
}

// schemeLookup справочные запросы к источнику NAV
type schemeLookup interface {
	Scheme(ctx context.Context, schemeCode int) (*navsource.Scheme, error)
	Search(ctx context.Context, query string) ([]navsource.SearchResult, error)
	Latest(ctx context.Context, limit, offset int) ([]navsource.Scheme, error)
}

// NewApp создает зависимости с клиентом mfapi.in
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	client := navsource.NewClientFromConfig(cfg, logger)
	return &App{
		Config:  cfg,
		Logger:  logger,
		NAV:     client,
		schemes: client,
	}
}

// Storage открывает хранилище при первом обращении
func (a *App) Storage() (*storage.Service, error) {
	if a.store != nil {
		return a.store, nil
	}
	svc, closeFn, err := storage.Open(a.Config)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = svc
	a.closeStore = closeFn
	a.investments = portfolio.NewInvestmentRepository(svc)
	a.watchlist = portfolio.NewWatchlistRepository(svc)
	a.Logger.Debug().Str("mode", string(svc.Mode())).Str("path", a.Config.StoragePath).Msg("storage opened")
	return svc, nil
}

// Close закрывает хранилище
func (a *App) Close() error {
	if a.closeStore == nil {
		return nil
	}
	err := a.closeStore()
	a.store, a.closeStore = nil, nil
	a.investments, a.watchlist = nil, nil
	return err
}

// Registry инструменты с текущими зависимостями
func (a *App) Registry() []tools.Tool {
	return tools.Registry(tools.Deps{
		Config:      a.Config,
		Tracer:      a.Tracer,
		NAV:         a.NAV,
		Investments: a.investments,
		Logger:      a.Logger,
	})
}

// CallTool вызывает инструмент по имени
func (a *App) CallTool(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	for _, t := range a.Registry() {
		if t.Name == name {
			return t.Handler(ctx, params)
		}
	}
	return nil, fmt.Errorf("неизвестный инструмент: %s", name)
}

// NewRootCmd создает корневую команду
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fintools",
		Short: "Personal finance projections and mutual fund portfolio tracking",
		Long: `fintools projects fixed deposits and PPF accounts across Indian fiscal years,
values mutual fund investments against NAV history from mfapi.in and keeps
a local portfolio of lumpsum and SIP declarations.

Run 'fintools serve' to expose the calculators over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd(app))
	addCalculatorCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addSchemeCommands(rootCmd, app)
	addStorageCommands(rootCmd, app)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(map[string]string{"version": tracing.Version})
			}
			out.Printf("fintools %s\n", tracing.Version)
			return nil
		},
	}
}

func newServeCmd(app *App) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = app.Config.Port
			}

			provider, err := tracing.InitTracing(app.Config.OTELServiceName, app.Config.OTELEndpoint, app.Logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := provider.Shutdown(context.Background()); err != nil {
					app.Logger.Warn().Err(err).Msg("tracer shutdown failed")
				}
			}()
			app.Tracer = provider.Tracer

			if _, err := app.Storage(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Options{Tools: app.Registry(), Logger: app.Logger})
			return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: PORT from config)")
	return cmd
}
