package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/autostack/autostack/internal/infrastructure/web"
	"github.com/autostack/autostack/internal/infrastructure/wiring"
	"github.com/autostack/autostack/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	runServe  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Browse the workspace's projects and plans over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return err
		}
		server, err := web.NewServer(ws.Store, nil, slog.Default())
		if err != nil {
			return err
		}
		if os.Getenv("AUTOSTACK_SKIP_SERVE_START") == "true" {
			return nil
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return server.ListenAndServe(ctx, serveAddr)
	},
}

// startLiveServer serves the workspace on addr and streams svc's events
// until ctx is done. Failures are logged, not returned, so a busy port
// does not stop a run.
func startLiveServer(ctx context.Context, svc *wiring.ProjectServices, addr string) error {
	broker := web.NewBroker()
	store := storage.NewWorkspace(filepath.Dir(svc.Repo.Root()))
	server, err := web.NewServer(store, broker, slog.Default())
	if err != nil {
		return err
	}
	svc.Dispatcher.RegisterWildcard("web", broker.Handle)
	go func() {
		if err := server.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("web server stopped", "addr", addr, "error", err)
		}
	}()
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8484", "Address to listen on")
	RootCmd.AddCommand(serveCmd)
}
