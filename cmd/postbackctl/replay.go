package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"postback-platform/internal/app"
	"postback-platform/internal/config"
	"postback-platform/pkg/logger"

	"github.com/spf13/cobra"
)

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <received-postback-id>",
		Short: "重新执行一条未入账回传的流水线",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("无效的回传 ID: %q", args[0])
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logger.InitLogger(cfg.Log)
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Receiver.Replay(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("POSTBACK_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}
	return config.Load(path)
}
