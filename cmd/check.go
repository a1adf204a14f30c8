package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Fetch one page and print how it would be classified and extracted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := p.close(); cerr != nil {
					c.logger.Warn("shutdown cleanup failed", zap.Error(cerr))
				}
			}()

			inspection, err := p.worker.Inspect(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("check %s: %w", args[0], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(inspection)
		},
	}
}
