package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dacore/internal/schema"
)

// TablesOptions holds flags for the tables command.
type TablesOptions struct {
	*RootOptions
	Source string
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TablesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tables [data-set...]",
		Short: "List or describe the data sets of a source",
		Long: `Without arguments, list the data sets of a configured source. With data set
names, describe each one: properties, keys, indexes and constraints as read
from the backend catalog.

Example:
  dacore tables --source local
  dacore tables --source warehouse cities roads --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "configured data source name (required)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runTables(opts *TablesOptions, names []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	ds, err := openSource(ctx, opts.RootOptions, opts.Source)
	if err != nil {
		return failOpen(f, opts.Source, err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			slog.Error("error closing data source", "source", opts.Source, "error", err)
		}
	}()

	tr, err := ds.Transactor(ctx)
	if err != nil {
		return f.Fail(ErrCodeGeneric, "failed to get transactor", err)
	}
	defer tr.Close()

	if len(names) == 0 {
		all, err := tr.DataSetNames(ctx)
		if err != nil {
			return f.Fail(ErrCodeGeneric, "failed to list data sets", err)
		}
		if f.Format == "json" {
			return f.Success(all)
		}
		for _, n := range all {
			fmt.Fprintln(f.Writer, n)
		}
		return nil
	}

	types := make([]*schema.DataSetType, 0, len(names))
	for _, n := range names {
		dt, err := tr.DataSetType(ctx, n)
		if err != nil {
			return f.Fail(ErrCodeGeneric, "failed to describe "+n, err)
		}
		types = append(types, dt)
	}
	if f.Format == "json" {
		return f.Success(types)
	}
	for i, dt := range types {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		if err := describe(f, dt); err != nil {
			return err
		}
	}
	return nil
}

// describe prints dt as a property table followed by its keys, indexes
// and constraints.
func describe(f *OutputFormatter, dt *schema.DataSetType) error {
	fmt.Fprintf(f.Writer, "%s\n", dt.Name)

	rows := make([][]string, 0, len(dt.Properties))
	for _, p := range dt.Properties {
		var extra []string
		if p.Required {
			extra = append(extra, "NOT NULL")
		}
		if p.AutoNumber {
			extra = append(extra, "AUTO")
		}
		if p.Size > 0 {
			extra = append(extra, "SIZE "+strconv.Itoa(p.Size))
		}
		if p.Default != nil {
			extra = append(extra, "DEFAULT "+*p.Default)
		}
		if p.Type == schema.Geometry {
			g := p.GeometryType
			if g == "" {
				g = "GEOMETRY"
			}
			extra = append(extra, fmt.Sprintf("%s SRID %d", g, p.SRID))
		}
		rows = append(rows, []string{"  " + p.Name, p.Type.String(), p.NativeType, strings.Join(extra, ", ")})
	}
	if err := f.Table([]string{"  PROPERTY", "TYPE", "NATIVE", "DETAIL"}, rows); err != nil {
		return err
	}

	if pk := dt.PrimaryKey; pk != nil {
		fmt.Fprintf(f.Writer, "  primary key (%s)\n", strings.Join(pk.Columns, ", "))
	}
	for _, u := range dt.UniqueKeys {
		fmt.Fprintf(f.Writer, "  unique %s (%s)\n", u.Name, strings.Join(u.Columns, ", "))
	}
	for _, fk := range dt.ForeignKeys {
		fmt.Fprintf(f.Writer, "  foreign key (%s) references %s (%s)\n",
			strings.Join(fk.Columns, ", "), fk.ReferencedDataSet, strings.Join(fk.ReferencedColumns, ", "))
	}
	for _, idx := range dt.Indexes {
		unique := ""
		if idx.Unique {
			unique = "unique "
		}
		fmt.Fprintf(f.Writer, "  %sindex %s %s (%s)\n", unique, idx.Name, idx.Type, strings.Join(idx.Columns, ", "))
	}
	for _, ck := range dt.CheckConstraints {
		fmt.Fprintf(f.Writer, "  check %s (%s)\n", ck.Name, ck.Expression)
	}
	return nil
}
