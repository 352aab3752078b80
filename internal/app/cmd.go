package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitoshi/assetdesk/internal/config"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandAPI はAPI層（REST API）を起動することを示す。
	CommandAPI Command = "api"
	// CommandWeb はWeb層（画面配信とエッジ認証）を起動することを示す。
	CommandWeb Command = "web"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// NewRootCommand はassetdeskのルートコマンドを生成する。
// ログはwに出力する。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "assetdesk",
		Short:         "IT asset management API and web tier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(w)

	root.AddCommand(
		serverCmd(w, CommandAPI, config.TierAPI, "Start the REST API server", runAPI),
		serverCmd(w, CommandWeb, config.TierWeb, "Start the web tier (edge gate, login relay, API proxy)", runWeb),
		serverCmd(w, CommandMigrate, config.TierMigrate, "Apply pending database migrations", runMigrate),
		healthcheckCmd(),
	)
	return root
}

func serverCmd(w io.Writer, name Command, tier config.Tier, short string, run func(*config.Config) error) *cobra.Command {
	return &cobra.Command{
		Use:   string(name),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w, tier)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			shutdown, err := initTracing(cmd.Context(), cfg, name)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer shutdown()
			return run(cfg)
		},
	}
}

// healthcheckCmd は軽量サブコマンドのため、設定の読み込みとログの初期化を行わない。
func healthcheckCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Check GET /health on the local server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = defaultHealthcheckPort()
			}
			return runHealthcheck(port)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "port to check (default $API_PORT or 3001)")
	return cmd
}

func defaultHealthcheckPort() string {
	if p := os.Getenv("API_PORT"); p != "" {
		return p
	}
	return "3001"
}
