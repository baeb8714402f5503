package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// DriverInfo summarizes one registered driver.
type DriverInfo struct {
	Type             string   `json:"type"`
	Access           string   `json:"access"`
	Transactions     bool     `json:"transactions"`
	SpatialOperators []string `json:"spatial_operators"`
	Encodings        []string `json:"encodings,omitempty"`
}

// NewDriversCommand creates the drivers command.
func NewDriversCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List registered data source types",
		Long: `List the data source types this build can open, with a summary of
their published capabilities. Capability profiles named in the config file
are applied first.

Example:
  dacore drivers
  dacore drivers --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrivers(rootOpts, cmd)
		},
	}
}

func runDrivers(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.Config()
	if err != nil {
		return f.Fail(ErrCodeConfig, "config error", err)
	}
	r, err := NewRegistry(cfg)
	if err != nil {
		return f.Fail(ErrCodeConfig, "failed to register drivers", err)
	}

	var infos []DriverInfo
	for _, typ := range r.Types() {
		caps, _ := r.Capabilities(typ)
		infos = append(infos, DriverInfo{
			Type:             typ,
			Access:           caps.AccessPolicy.String(),
			Transactions:     caps.Transactions,
			SpatialOperators: caps.Query.SpatialTopologicOperators,
			Encodings:        caps.Encodings,
		})
	}

	if f.Format == "json" {
		return f.Success(infos)
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Type,
			info.Access,
			strconv.FormatBool(info.Transactions),
			strconv.Itoa(len(info.SpatialOperators)),
			strings.Join(info.Encodings, ","),
		})
	}
	return f.Table([]string{"TYPE", "ACCESS", "TRANSACTIONS", "SPATIAL OPS", "ENCODINGS"}, rows)
}
