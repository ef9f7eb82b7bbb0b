// Package schema provides commands for inspecting category schemas.
package schema

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/attrmap/internal/appcontext"
	"github.com/agentstation/attrmap/internal/cmd/output"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/errors"
)

// NewCommand creates the schema command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schema",
		GroupID: "management",
		Short:   "Inspect category schemas",
		Example: `  attrmap schema fetch CBT1157
  attrmap schema fetch CBT1157 -o yaml > schemas/CBT1157.yaml`,
	}
	cmd.AddCommand(newFetchCommand(app))
	return cmd
}

func newFetchCommand(app appcontext.Interface) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "fetch <category>",
		Short: "Fetch and print the attribute schema of a category",
		Long: `Fetch retrieves the schema of a category from the configured source.

The json and yaml outputs are attribute lists that --schema on the build
command reads back, so a fetched schema can be saved and reused offline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), constants.DefaultTimeout)
			defer cancel()

			client, err := app.Client()
			if err != nil {
				return err
			}
			s := client.Schema(ctx, args[0])
			if strict && s.Len() == 0 {
				return errors.NewNotFoundError("schema", args[0])
			}

			format, err := output.ParseFormat(app.OutputFormat())
			if err != nil {
				return err
			}
			format = output.DetectFormat(string(format))
			return output.Write(cmd.OutOrStdout(), format, s, output.SchemaData(s))
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the schema is empty or unavailable")
	return cmd
}
