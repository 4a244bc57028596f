package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/logviewer/internal/node/files"
	"github.com/Laisky/logviewer/internal/node/web"
	"github.com/Laisky/logviewer/library/config"
	"github.com/Laisky/logviewer/library/log"
)

var nodeCMD = &cobra.Command{
	Use:   "node",
	Short: "run a file-serving node",
	Long:  `serve directory listings, file reads and searches over the configured roots`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode()
	},
}

func runNode() error {
	get := config.Shared()

	settings := files.LoadSettings(get)
	if len(settings.Roots) == 0 {
		return errors.New("settings.node.roots must name at least one root")
	}

	svc, err := files.NewService(settings, log.Logger.Named("node_files"))
	if err != nil {
		return errors.Wrap(err, "new file service")
	}
	for _, root := range svc.Roots() {
		log.Logger.Info("serve root", zap.String("name", root.Name), zap.String("path", root.Path))
	}

	srv := web.NewServer(svc, get.String("settings.node.api_key", ""), log.Logger.Named("node_web"))
	return srv.Run(gconfig.Shared.GetString("listen"))
}

func init() {
	rootCMD.AddCommand(nodeCMD)
}
