package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"postback-platform/internal/macro"

	"github.com/spf13/cobra"
)

func validateMacrosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-macros <template>",
		Short: "检查回传模板中的宏是否都受支持",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ok, unsupported := macro.ValidateMacros(args[0])
			found := macro.ExtractMacros(args[0])

			fmt.Fprintf(out, "macros:      %s\n", strings.Join(found, ", "))
			if ok {
				fmt.Fprintln(out, "status:      OK")
				return nil
			}
			fmt.Fprintf(out, "unsupported: %s\n", strings.Join(unsupported, ", "))
			return fmt.Errorf("模板包含 %d 个不支持的宏", len(unsupported))
		},
	}
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <template> [key=value...]",
		Short: "用给定的值渲染回传模板",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(args)-1)
			for _, kv := range args[1:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("参数格式应为 key=value: %q", kv)
				}
				values[k] = v
			}

			rendered := macro.Render(args[0], values)
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"template": args[0], "rendered": rendered, "context": values})
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "以 JSON 输出")
	return cmd
}
