package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dacore/internal/datasource"
)

// NewCapabilitiesCommand creates the capabilities command.
func NewCapabilitiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities <type>",
		Short: "Show the capability profile of a data source type",
		Long: `Print the full published capabilities of a data source type. Text output
uses the capability profile file layout, so it can be saved, edited and
referenced from the config file's capability_profiles setting.

Example:
  dacore capabilities sqlite
  dacore capabilities postgis --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapabilities(rootOpts, args[0], cmd)
		},
	}
}

func runCapabilities(opts *RootOptions, typ string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.Config()
	if err != nil {
		return f.Fail(ErrCodeConfig, "config error", err)
	}
	r, err := NewRegistry(cfg)
	if err != nil {
		return f.Fail(ErrCodeConfig, "failed to register drivers", err)
	}

	caps, ok := r.Capabilities(typ)
	if !ok {
		return f.Fail(ErrCodeUnknownType, "unknown driver",
			fmt.Errorf("%w: %q (known: %v)", datasource.ErrUnknownType, typ, r.Types()))
	}

	if f.Format == "json" {
		return f.Success(caps)
	}
	out, err := yaml.Marshal(map[string]any{typ: caps})
	if err != nil {
		return f.Fail(ErrCodeGeneric, "failed to encode capabilities", err)
	}
	_, err = f.Writer.Write(out)
	return err
}
