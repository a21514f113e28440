package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := bootstrap(ctx)
	defer rt.Close()

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	orchestrator, extractor, err := rt.services(ctx)
	if err != nil {
		rt.logger.Fatal("preparing ai services", zap.Error(err))
	}

	srv := server.New(server.Deps{
		Matcher:   orchestrator,
		Store:     rt.store,
		Extractor: extractor,
		Logger:    rt.logger,
	})

	rt.logger.Info("starting the resume-matcher", zap.String("version", version))
	if err := srv.Run(ctx, rt.config.Server.Listen); err != nil {
		rt.logger.Error("server stopped", zap.Error(err))
	}
}
