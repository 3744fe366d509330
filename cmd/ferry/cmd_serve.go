package ferry

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/wechatferry/ferry/internal/ferry"
	"github.com/wechatferry/ferry/internal/ferry/conf"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveBackendURL, "backend-url", "b", "", "wcferry control api url")
	serveCmd.Flags().StringVarP(&serveWebhookAddr, "webhook-addr", "a", "", "webhook listen address")
	serveCmd.Flags().BoolVar(&serveNoWebhook, "no-webhook", false, "disable the webhook server")
	serveCmd.Flags().StringVarP(&serveConfigDir, "config-dir", "c", "", "config directory")
	serveCmd.Flags().StringVarP(&serveStorage, "storage", "s", "", "cache storage: memory or redis")
}

var (
	serveBackendURL  string
	serveWebhookAddr string
	serveNoWebhook   bool
	serveConfigDir   string
	serveStorage     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the puppet bridge",
	Run: func(cmd *cobra.Command, args []string) {
		cmdConf := make(map[string]any)
		if serveBackendURL != "" {
			cmdConf["backend_url"] = serveBackendURL
		}
		if serveWebhookAddr != "" {
			cmdConf["webhook_addr"] = serveWebhookAddr
		}
		if serveNoWebhook {
			cmdConf["webhook_disabled"] = true
		}
		if serveStorage != "" {
			cmdConf["storage"] = serveStorage
		}

		c, _, err := conf.Load(serveConfigDir, cmdConf)
		if err != nil {
			log.Err(err).Msg("failed to load config")
			return
		}

		// 信号处理收在进程边界,往下只传 ctx
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m, err := ferry.New(ctx, c)
		if err != nil {
			log.Err(err).Msg("failed to create ferry instance")
			return
		}
		if err := m.Run(ctx); err != nil {
			log.Err(err).Msg("ferry exited with error")
		}
	},
}
