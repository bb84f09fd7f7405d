package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "postbackctl",
		Short:         "回传平台运维工具",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "配置文件路径（默认读取 POSTBACK_CONFIG 或 configs/config.yaml）")

	rootCmd.AddCommand(validateMacrosCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(replayCmd())
	return rootCmd
}
