package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/sqlparse"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Dialect  string
	WFS      bool
	Bindings map[string]string
}

// RenderResult is the rendered form of one statement.
type RenderResult struct {
	Dialect string     `json:"dialect"`
	SQL     string     `json:"sql,omitempty"`
	Args    []any      `json:"args,omitempty"`
	Params  url.Values `json:"params,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <sql>",
		Short: "Translate SQL into a backend dialect",
		Long: `Parse a SELECT, INSERT, UPDATE or DELETE statement and render it for the
given dialect. Input uses MySQL syntax: backtick identifiers, ":name" or "?"
parameters. Parameters without a --bind value are left as placeholders.

The WFS dialect renders the WHERE clause as an ECQL filter, or with --wfs the
whole query as WFS 2.0 GetFeature parameters.

Example:
  dacore render --dialect postgis "select name from cities where ST_Intersects(geom, ST_GeomFromText('POINT(1 2)', 4326))"
  dacore render --dialect wfs --wfs "select name from cities where population > 1000 limit 10"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", fmt.Sprintf("target dialect %v (required)", dialect.BuiltinNames()))
	cmd.Flags().BoolVar(&opts.WFS, "wfs", false, "encode as WFS GetFeature parameters")
	cmd.Flags().StringToStringVarP(&opts.Bindings, "bind", "b", nil, "parameter values (name=value)")
	_ = cmd.MarkFlagRequired("dialect")

	return cmd
}

func runRender(opts *RenderOptions, sql string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	d, err := dialect.Builtin(opts.Dialect, dialect.NewFunctionCatalogManager())
	if err != nil {
		return f.Fail(ErrCodeUnknownType, "unknown dialect", err)
	}
	stmt, err := sqlparse.Parse(sql)
	if err != nil {
		return f.Fail(ErrCodeInvalidExpr, "failed to parse SQL", err)
	}
	f.VerboseLog("parsed %T, rendering for %s", stmt, d.Name)

	res, err := render(d, stmt, opts)
	if err != nil {
		return f.Fail(ErrCodeGeneric, "failed to render", err)
	}

	if f.Format == "json" {
		return f.Success(res)
	}
	w := f.Writer
	if res.Params != nil {
		fmt.Fprintln(w, res.Params.Encode())
		return nil
	}
	fmt.Fprintln(w, res.SQL)
	for i, a := range res.Args {
		if def, ok := a.(dialect.Deferred); ok {
			fmt.Fprintf(w, "%d: :%s (unbound)\n", i+1, def.Name)
			continue
		}
		fmt.Fprintf(w, "%d: %T %v\n", i+1, a, a)
	}
	return nil
}

func render(d *dialect.Dialect, stmt expr.Statement, opts *RenderOptions) (*RenderResult, error) {
	res := &RenderResult{Dialect: d.Name}

	if opts.WFS {
		sel, ok := stmt.(*expr.Select)
		if !ok {
			return nil, dberr.NewUnsupportedError(d.Name, "GetFeature for non-select statements")
		}
		params, err := d.EncodeWFSGetFeature(sel)
		if err != nil {
			return nil, err
		}
		res.Params = params
		return res, nil
	}

	ropts := dialect.Options{Bindings: bindValues(opts.Bindings), Defer: true}

	if !d.Statements {
		sel, ok := stmt.(*expr.Select)
		if !ok || sel.Where == nil {
			return nil, dberr.NewUnsupportedError(d.Name, "statements other than a filtered select")
		}
		filter, args, err := d.RenderExpression(sel.Where, ropts)
		if err != nil {
			return nil, err
		}
		res.SQL, res.Args = filter, args
		return res, nil
	}

	sql, args, err := d.Render(stmt, ropts)
	if err != nil {
		return nil, err
	}
	res.SQL, res.Args = sql, args
	return res, nil
}
