package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/harakeishi/goport/internal/app"
	"github.com/harakeishi/goport/internal/cleanup"
	"github.com/harakeishi/goport/internal/config"
	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/internal/watcher"
	"github.com/harakeishi/goport/pkg/types"
)

var (
	servePort         int
	serveFrontendPort int
	serveBackendPort  int
)

// serveCmd はserveコマンドを表します。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "ポートペアを割り当ててサーバを起動",
	Long: `ポートペアを割り当て、フロントエンドとバックエンドのサーバを起動します。

フロントエンドは / を、バックエンドは /healthz、/api/ports、/metrics を提供します。
設定ファイルの変更は再起動せずに反映され、終了時に確保したポートを解放します。`,
	Example: `  # 自動で割り当てて起動
  goport serve

  # フロントエンドを 3000 で起動 (使用中なら次の空きポート)
  goport serve --port 3000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApplication()
		if err != nil {
			return err
		}

		opts := portOptions(cmd.Flags())
		if err := a.Validator.ValidateOptions(ctx, opts); err != nil {
			return err
		}

		resolved, err := a.Allocator.DetectPorts(ctx, opts)
		if err != nil {
			return err
		}

		target := cleanup.CleanupTarget{
			ID:        uuid.NewString(),
			Ports:     resolved.Ports(),
			CreatedAt: time.Now(),
		}
		if err := a.Cleanup.RegisterTarget(ctx, target); err != nil {
			return err
		}
		defer func() {
			if err := a.Cleanup.ExecuteAllCleanup(context.WithoutCancel(ctx)); err != nil {
				a.Logger.Error(ctx, "ポートの解放に失敗しました", err)
			}
		}()

		startConfigWatcher(ctx, a)

		w := cmd.OutOrStdout()
		if err := renderPortConfiguration(w, resolved); err != nil {
			return err
		}
		return runServers(ctx, a, resolved)
	},
}

// startConfigWatcher は設定ファイルの変更をアロケータとロガーに反映します。
func startConfigWatcher(ctx context.Context, a *app.Application) {
	cw := watcher.NewConfigWatcher(settings, config.NewManager(nil, a.Logger), a.Logger)
	cw.OnChange(watcher.DenylistHandler(a.Allocator))
	if ls, ok := a.Logger.(logger.LevelSetter); ok {
		cw.OnChange(watcher.LogLevelHandler(ls))
	}
	cw.Start(ctx)
}

type boundServer struct {
	role     types.PortRole
	listener net.Listener
	server   *http.Server
}

// runServers は両方のポートで待ち受け、ctx が終了するまで処理します。
// どちらかのサーバが異常終了した場合は他方も停止します。
func runServers(ctx context.Context, a *app.Application, resolved types.PortConfiguration) error {
	host := a.Config.Server.Host
	handlers := map[types.PortRole]http.Handler{
		types.PortRoleFrontend: newFrontendHandler(host, resolved),
		types.PortRoleBackend:  newBackendHandler(a, resolved),
	}

	var servers []*boundServer
	for _, b := range []struct {
		role types.PortRole
		port int
	}{
		{types.PortRoleFrontend, resolved.Frontend},
		{types.PortRoleBackend, resolved.Backend},
	} {
		addr := net.JoinHostPort(host, strconv.Itoa(b.port))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			for _, s := range servers {
				_ = s.listener.Close()
			}
			return errors.NewServerBindError(addr, err)
		}
		servers = append(servers, &boundServer{
			role:     b.role,
			listener: ln,
			server:   &http.Server{Handler: handlers[b.role], ReadHeaderTimeout: 5 * time.Second},
		})
		a.Logger.Info(ctx, "待ち受けを開始しました",
			types.Field{Key: "role", Value: string(b.role)},
			types.Field{Key: "addr", Value: addr})
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, s := range servers {
		p.Go(func(ctx context.Context) error {
			if err := s.server.Serve(s.listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return &errors.AppError{
					Code:    errors.ErrServerServeFailed,
					Message: fmt.Sprintf("%s サーバが停止しました", s.role),
					Cause:   err,
				}
			}
			return nil
		})
	}
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
		defer cancel()

		a.Logger.Info(ctx, "サーバを停止しています")
		var err error
		for _, s := range servers {
			err = multierr.Append(err, s.server.Shutdown(shutdownCtx))
		}
		return err
	})
	return p.Wait()
}

// newFrontendHandler はフロントエンド用のハンドラを返します。
func newFrontendHandler(host string, resolved types.PortConfiguration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "goport frontend :%d\nbackend: http://%s\n",
			resolved.Frontend, net.JoinHostPort(host, strconv.Itoa(resolved.Backend)))
	})
	return mux
}

// portsResponse は /api/ports の応答です。
type portsResponse struct {
	Ports       types.PortConfiguration `json:"ports"`
	Resolutions []types.PortResolution  `json:"resolutions"`
	Stats       types.UsageStats        `json:"stats"`
}

// newBackendHandler はバックエンド用のハンドラを返します。
func newBackendHandler(a *app.Application, resolved types.PortConfiguration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := a.Allocator.HealthCheck(r.Context())
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	})
	mux.HandleFunc("/api/ports", func(w http.ResponseWriter, r *http.Request) {
		resolutions := resolved.Resolutions()
		if resolutions == nil {
			resolutions = []types.PortResolution{}
		}
		writeJSON(w, http.StatusOK, portsResponse{
			Ports:       resolved,
			Resolutions: resolutions,
			Stats:       a.Allocator.UsageStats(),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	addPortFlags(serveCmd.Flags(), &servePort, &serveFrontendPort, &serveBackendPort)
}
