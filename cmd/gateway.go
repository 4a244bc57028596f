package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/logviewer/internal/gateway/cache"
	"github.com/Laisky/logviewer/internal/gateway/proxy"
	"github.com/Laisky/logviewer/internal/gateway/registry"
	gatewayweb "github.com/Laisky/logviewer/internal/gateway/web"
	"github.com/Laisky/logviewer/library/config"
	"github.com/Laisky/logviewer/library/log"
)

var gatewayCMD = &cobra.Command{
	Use:   "gateway",
	Short: "run the gateway",
	Long:  `track node health and proxy browse, read and search requests to nodes`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runGateway(ctx)
	},
}

func runGateway(ctx context.Context) error {
	get := config.Shared()
	logger := log.Logger.Named("gateway")

	regSettings, err := registry.LoadSettings(get)
	if err != nil {
		return errors.Wrap(err, "load node settings")
	}
	if len(regSettings.Nodes) == 0 {
		logger.Warn("no nodes configured")
	}

	reg, err := registry.New(regSettings,
		registry.NewHTTPProber(&http.Client{}),
		logger.Named("registry"))
	if err != nil {
		return errors.Wrap(err, "new registry")
	}

	// serve with known health from the first request on
	for _, node := range reg.Refresh(ctx) {
		logger.Info("node registered",
			zap.String("id", node.ID),
			zap.String("url", node.InternalURL),
			zap.Bool("healthy", node.IsHealthy))
	}
	go reg.Run(ctx, regSettings.HealthInterval)

	rootsCache, err := cache.New(ctx, cache.LoadSettings(get), logger.Named("cache"))
	if err != nil {
		return errors.Wrap(err, "new roots cache")
	}

	px := proxy.New(reg, proxy.LoadSettings(get),
		proxy.WithRootsCache(rootsCache),
		proxy.WithLogger(logger.Named("proxy")),
	)

	srv := gatewayweb.NewServer(reg, px, logger.Named("web"))
	return srv.Run(gconfig.Shared.GetString("listen"))
}

func init() {
	rootCMD.AddCommand(gatewayCMD)
}
