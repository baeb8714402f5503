package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/sqlparse"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Source   string
	Bindings map[string]string
	Raw      bool
	MaxRows  int
}

// Column describes one result column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the rows of a query.
type QueryResult struct {
	Columns   []Column `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a select against a configured source",
		Long: `Parse a SELECT statement, render it for the source's backend and print the
rows. With --raw the text is sent to the backend unchanged.

Bound values that read as integers or decimals are passed as numbers,
anything else as text. --bind cannot be combined with --raw.

Example:
  dacore query --source local "select name, population from cities where population > :min" --bind min=100000
  dacore query --source warehouse --raw "SELECT ST_AsText(geom) FROM cities LIMIT 5"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "configured data source name (required)")
	cmd.Flags().StringToStringVarP(&opts.Bindings, "bind", "b", nil, "parameter values (name=value)")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "send the SQL to the backend unchanged")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 0, "stop after this many rows (0 for all)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runQuery(opts *QueryOptions, sql string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	if opts.Raw && len(opts.Bindings) > 0 {
		return f.Fail(ErrCodeGeneric, "invalid flags", errors.New("--bind cannot be used with --raw"))
	}

	var sel *expr.Select
	if !opts.Raw {
		var err error
		if sel, err = sqlparse.ParseSelect(sql); err != nil {
			return f.Fail(ErrCodeInvalidExpr, "failed to parse SQL", err)
		}
	}

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

	qopts := datasource.QueryOptions{Bindings: bindValues(opts.Bindings)}
	var set datasource.DataSet
	if opts.Raw {
		set, err = tr.QuerySQL(ctx, sql, nil, qopts)
	} else {
		set, err = tr.Query(ctx, sel, qopts)
	}
	if err != nil {
		return f.Fail(ErrCodeGeneric, "query failed", err)
	}
	defer set.Close()

	res, err := collect(set, opts.MaxRows)
	if err != nil {
		return f.Fail(ErrCodeGeneric, "failed to read rows", err)
	}
	slog.Debug("query done", "source", opts.Source, "rows", len(res.Rows), "truncated", res.Truncated)

	if f.Format == "json" {
		return f.Success(res)
	}
	header := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c.Name
	}
	rows := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = formatCell(v)
		}
	}
	if err := f.Table(header, rows); err != nil {
		return err
	}
	if res.Truncated {
		fmt.Fprintf(f.Writer, "(stopped after %d rows)\n", len(res.Rows))
	}
	return nil
}

// collect reads up to limit rows from set; limit <= 0 reads all.
func collect(set datasource.DataSet, limit int) (*QueryResult, error) {
	res := &QueryResult{Rows: [][]any{}}
	for i := range set.NumProperties() {
		res.Columns = append(res.Columns, Column{
			Name: set.PropertyName(i),
			Type: set.PropertyDataType(i).String(),
		})
	}
	for set.MoveNext() {
		if limit > 0 && len(res.Rows) == limit {
			res.Truncated = true
			break
		}
		row := make([]any, len(res.Columns))
		for i := range row {
			if set.IsNull(i) {
				continue
			}
			v, err := set.Value(i)
			if err != nil {
				return nil, err
			}
			if row[i], err = expr.Native(v); err != nil {
				return nil, err
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := set.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(x))
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// bindValues converts flag values, reading numbers as int64 or float64.
func bindValues(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, s := range in {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out[k] = n
		} else if x, err := strconv.ParseFloat(s, 64); err == nil {
			out[k] = x
		} else {
			out[k] = s
		}
	}
	return out
}
