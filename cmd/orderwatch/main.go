package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iurnickita/orderwatch/internal/auth"
	"github.com/iurnickita/orderwatch/internal/config"
	"github.com/iurnickita/orderwatch/internal/handler"
	"github.com/iurnickita/orderwatch/internal/logger"
	"github.com/iurnickita/orderwatch/internal/service"
	"github.com/iurnickita/orderwatch/internal/store"
)

const resetHistoryPath = "/api/admin/notifications/reset"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "orderwatch",
		Usage: "order lifecycle tracking and admin notifications",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the admin API and the new order monitor (DATABASE_URI is required)",
				Action: serve,
			},
			{
				// состояние уведомлений живёт в памяти сервера, поэтому сброс
				// выполняет сам сервер
				Name:  "reset-history",
				Usage: "ask a running server to erase notifications and the notified orders history",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Usage: "admin API base url", Value: "http://localhost:8080"},
					&cli.StringFlag{Name: "operator", Usage: "operator name for the request", Value: "cli"},
				},
				Action: resetHistory,
			},
			{
				Name:  "issue-token",
				Usage: "print an operator token for the admin API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "operator", Usage: "operator name", Required: true},
				},
				Action: issueToken,
			},
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	service, err := service.NewService(cfg.Service, store, zaplog)
	if err != nil {
		return err
	}
	// остаток уведомлений записывается до закрытия хранилища
	defer service.Close()

	auth := auth.NewAuth(cfg.Auth)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return handler.Serve(gCtx, cfg.Handler, auth, service, zaplog)
	})
	g.Go(func() error {
		return service.RunMonitor(gCtx)
	})

	err = g.Wait()
	zaplog.Info("orderwatch stopped", zap.Error(err))
	return err
}

func resetHistory(c *cli.Context) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	token, err := auth.NewAuth(cfg.Auth).IssueToken(c.String("operator"))
	if err != nil {
		return err
	}

	resp, err := resty.New().
		SetBaseURL(c.String("server")).
		SetTimeout(10 * time.Second).
		R().
		SetContext(c.Context).
		SetAuthToken(token).
		Post(resetHistoryPath)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("reset history: server status %d: %s", resp.StatusCode(), resp.String())
	}

	fmt.Fprintln(c.App.Writer, "notification history reset")
	return nil
}

func issueToken(c *cli.Context) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	token, err := auth.NewAuth(cfg.Auth).IssueToken(c.String("operator"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}
