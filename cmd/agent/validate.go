package agent

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jmx-collector/pkg/config"
	"github.com/jmx-collector/pkg/source"
)

// ErrRejectedSources validate 子命令发现了不合法的端点配置
var ErrRejectedSources = errors.New("some config sources were rejected")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check every endpoint config file and report which ones would be rejected",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				cfg, err := config.LoadConfigWithCli(cmd)
				if err != nil {
					return err
				}
				dir = cfg.Collect.Path
			}
			return validateSources(cmd, source.NewLoader(afero.NewOsFs(), dir))
		},
	}
}

func validateSources(cmd *cobra.Command, loader *source.Loader) error {
	out := cmd.OutOrStdout()
	paths, err := loader.Discover()
	if err != nil {
		return fmt.Errorf("discover %s: %w", loader.Dir(), err)
	}

	rejected := 0
	for _, p := range paths {
		rec, err := loader.Load(p)
		if err != nil {
			rejected++
			fmt.Fprintf(out, "REJECT %s: %v\n", p, err)
			continue
		}
		fmt.Fprintf(out, "OK     %s (%s, %d queries)\n", p, rec.Address(), len(rec.Queries))
	}
	fmt.Fprintf(out, "%d sources, %d accepted, %d rejected\n", len(paths), len(paths)-rejected, rejected)

	if rejected > 0 {
		return ErrRejectedSources
	}
	return nil
}
