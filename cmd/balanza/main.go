package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/candelento/balanza/internal/app"
	"github.com/candelento/balanza/internal/client"
	"github.com/candelento/balanza/internal/config"
	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/infra"
	"github.com/candelento/balanza/internal/model"
	"github.com/candelento/balanza/internal/push"
	"github.com/candelento/balanza/internal/rowsync"
	"github.com/candelento/balanza/internal/session"
	"github.com/candelento/balanza/internal/ticket"
	"github.com/candelento/balanza/internal/tui"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs, built once in PersistentPreRunE.
type env struct {
	cfg     *config.Config
	sess    *session.Session
	client  client.Client
	tickets ticket.Service
	closers []io.Closer
}

func (e *env) Close() {
	for _, c := range e.closers {
		_ = c.Close()
	}
}

func rootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "balanza",
		Short:         "Consola de operador de la balanza",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) { e.Close() },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd.Context(), e)
		},
	}
	root.AddCommand(loginCmd(e), logoutCmd(e), exportCmd(e), planillaCmd(e), backupCmd(e))
	return root
}

func (e *env) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	e.cfg = cfg
	e.closers = append(e.closers, infra.SetupLogger(cfg.Env, cfg.LogLevel, cfg.LogFile))

	var store session.Store
	switch cfg.StateBackend {
	case "redis":
		rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		e.closers = append(e.closers, rdb)
		store = session.NewRedisStore(rdb, "balanza")
	default:
		fs, err := session.NewFileStore(cfg.StatePath)
		if err != nil {
			return err
		}
		store = fs
	}
	e.sess = session.New(store)
	e.client = client.New(cfg.APIBaseURL, e.sess, cfg.HTTPTimeout())
	e.tickets = ticket.NewService(e.client, cfg.DownloadPath, ticket.CommandOpener(cfg.PDFOpener))
	log.Info().Str("api", cfg.APIBaseURL).Str("state", cfg.StateBackend).Msg("balanza: iniciando")
	return nil
}

func (e *env) newApp(ctx context.Context, onNotice func(app.Notice)) *app.App {
	return app.New(ctx, app.Deps{
		Client:     e.client,
		Session:    e.sess,
		Tickets:    e.tickets,
		OnNotice:   onNotice,
		ExportPath: e.cfg.ExportPath,
	})
}

func runConsole(ctx context.Context, e *env) error {
	events := tui.NewEvents()
	a := e.newApp(ctx, events.Notify)
	a.Announcer().Subscribe(events.Live)

	listener := push.NewListener(e.cfg.WSURL, a.Busy)
	go func() {
		if err := listener.Run(ctx, events.Push); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("push: listener detenido")
		}
	}()
	return tui.Run(ctx, a, events)
}

// printNotice writes notices to stdout for the one-shot subcommands.
func printNotice(n app.Notice) {
	if n.Level == rowsync.LevelError {
		fmt.Fprintln(os.Stderr, n.Message)
		return
	}
	fmt.Println(n.Message)
}

func loginCmd(e *env) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Inicia sesión y guarda el token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(os.Stderr, "Contraseña: ")
			pass, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("leer contraseña: %w", err)
			}
			if err := e.newApp(cmd.Context(), printNotice).Login(cmd.Context(), user, string(pass)); err != nil {
				return err
			}
			fmt.Println("Sesión iniciada.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "usuario")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Descarta el token guardado",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.sess.ClearToken(cmd.Context())
		},
	}
}

func exportCmd(e *env) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Escribe las pesadas del día en la planilla .xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a := e.newApp(ctx, printNotice)
			for _, k := range model.Kinds {
				f := a.Filters(k)
				f.Date = date
				if err := a.SetFilters(ctx, k, f); err != nil {
					return err
				}
			}
			_, err := a.Export(ctx)
			return err
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "día a exportar (YYYY-MM-DD); hoy por defecto")
	return cmd
}

func planillaCmd(e *env) *cobra.Command {
	var scope, action, date string
	cmd := &cobra.Command{
		Use:   "planilla",
		Short: "Imprime, descarga o guarda la planilla del día",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s := client.Scope(scope)
			var (
				res *ticket.Result
				err error
			)
			switch action {
			case "print":
				res, err = e.tickets.PrintPlanilla(ctx, s)
			case "view":
				res, err = e.tickets.ViewPlanilla(ctx, s)
			case "download":
				res, err = e.tickets.DownloadPlanilla(ctx, s, dto.Filters{Date: date})
			case "save":
				res, err = e.tickets.SavePlanilla(ctx)
			default:
				return fmt.Errorf("acción desconocida %q (print, view, download, save)", action)
			}
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", string(client.ScopeTodo), "compras, ventas o todo")
	cmd.Flags().StringVar(&action, "action", "download", "print, view, download o save")
	cmd.Flags().StringVar(&date, "date", "", "día de la planilla descargada (YYYY-MM-DD)")
	return cmd
}

func backupCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Pide al servidor un backup de los datos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.newApp(cmd.Context(), printNotice).Backup(cmd.Context())
		},
	}
}
