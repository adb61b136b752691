package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ehrlich-b/sandboxhost/internal/browser"
	"github.com/ehrlich-b/sandboxhost/internal/editor"
	"github.com/ehrlich-b/sandboxhost/internal/httpapi"
	"github.com/ehrlich-b/sandboxhost/internal/sbconfig"
	"github.com/ehrlich-b/sandboxhost/internal/sblog"
	"github.com/ehrlich-b/sandboxhost/internal/secretprovision"
	"github.com/ehrlich-b/sandboxhost/internal/storage"
	"github.com/ehrlich-b/sandboxhost/internal/terminal"
)

func main() {
	root := &cobra.Command{
		Use:   "sandboxd",
		Short: "agent sandbox host",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			logFile, _ := cmd.Flags().GetString("log-file")
			headless, _ := cmd.Flags().GetBool("headless")

			cfg, err := sbconfig.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			if err := sblog.Init(cfg.BrowserUseLoggingLevel, logFile); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := storage.New(cfg.LocalStorageDir)
			if err != nil {
				return err
			}
			secrets, err := secretprovision.New(cfg.Home)
			if err != nil {
				return err
			}

			terminals := terminal.NewRegistry(cfg.ShellPath, cfg.WorkingDir)
			browserMgr := browser.NewManager(browser.Config{
				ChromeInstancePath: cfg.ChromeInstancePath,
				Headless:           headless,
				WorkingDir:         cfg.WorkingDir,
			})
			ed := editor.New(cfg.WorkingDir)

			srv := httpapi.NewServer(cfg, store, terminals, browserMgr, ed, secrets)
			httpSrv := &http.Server{
				Addr:    cfg.Addr,
				Handler: srv,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if term.IsTerminal(int(os.Stdout.Fd())) {
					fmt.Printf("sandboxd listening on %s\n", cfg.Addr)
				} else {
					sblog.Info("sandboxd listening", "addr", cfg.Addr)
				}
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				sblog.Info("shutting down")
				return httpSrv.Close()
			case err := <-errCh:
				return err
			}
		},
	}

	root.Flags().String("addr", "", "listen address (overrides SANDBOX_ADDR)")
	root.Flags().String("log-file", "", "optional log file path")
	root.Flags().Bool("headless", true, "run the browser headless")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
