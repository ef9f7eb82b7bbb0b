// Package build provides the build command, which maps one product
// document onto a category schema.
package build

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/attrmap"
	"github.com/agentstation/attrmap/internal/appcontext"
	"github.com/agentstation/attrmap/internal/cmd/output"
	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/schema"
)

// Flags holds the build command flags.
type Flags struct {
	Category  string
	Schema    string
	NoSuggest bool
	Payload   bool
	Out       string
}

// Payload is the attribute list in the shape a listing request expects.
type Payload struct {
	Attributes []attributes.Attribute `json:"attributes" yaml:"attributes"`
}

// NewCommand creates the build command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "build <document>",
		GroupID: "core",
		Short:   "Build marketplace attributes for a product document",
		Args:    cobra.ExactArgs(1),
		Long: `Build maps a JSON or YAML product document onto the attribute schema of a
category and prints the result.

The document argument is a file path, or "-" to read standard input. The
schema comes from the configured source unless --schema names a file or a
directory of <category>.json files.

Attributes nothing else resolves are sent to the suggestion model, when one
is configured, and the aliases it proposes are saved to the equivalence
cache for later builds.`,
		Example: `  attrmap build product.json -c CBT1157
  attrmap build product.json -c CBT1157 --schema schemas/
  cat product.yaml | attrmap build - -c CBT1157 -o markdown
  attrmap build product.json -c CBT1157 --no-suggest --payload --out attrs.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
			defer cancel()
			return run(ctx, cmd, app, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.Category, "category", "c", "", "target category id (required)")
	cmd.Flags().StringVar(&flags.Schema, "schema", "", "schema file or directory overriding the configured source")
	cmd.Flags().BoolVar(&flags.NoSuggest, "no-suggest", false, "do not ask the suggestion model for unresolved attributes")
	cmd.Flags().BoolVar(&flags.Payload, "payload", false, "print only the attribute list")
	cmd.Flags().StringVar(&flags.Out, "out", "", "write output to a file instead of stdout")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, app appcontext.Interface, flags *Flags, source string) error {
	logger := app.Logger()

	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}
	format = output.DetectFormat(string(format))

	data, err := readDocument(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}

	client, err := clientFor(app, flags)
	if err != nil {
		return err
	}

	res, err := client.BuildBytes(ctx, flags.Category, data)
	if err != nil {
		return err
	}

	logger.Debug().
		Str("run_id", res.RunID).
		Int("attributes", len(res.Attributes)).
		Int("missing", len(res.Missing)).
		Msg("Build finished")

	w := cmd.OutOrStdout()
	if flags.Out != "" {
		f, err := os.Create(flags.Out)
		if err != nil {
			return errors.WrapIO("create", flags.Out, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if flags.Payload {
		payload := Payload{Attributes: res.Attributes}
		rendered := output.Document{Sections: output.ResultDocument(res).Sections[:1]}
		return output.Write(w, format, payload, rendered)
	}
	return output.Write(w, format, res, output.ResultDocument(res))
}

// clientFor returns the shared client unless flags change how it is built.
func clientFor(app appcontext.Interface, flags *Flags) (attrmap.Client, error) {
	var opts []attrmap.Option
	if flags.Schema != "" {
		if _, err := os.Stat(flags.Schema); err != nil {
			return nil, errors.WrapIO("stat", flags.Schema, err)
		}
		opts = append(opts, attrmap.WithSchemaProvider(schema.NewFileProvider(flags.Schema)))
	}
	if flags.NoSuggest {
		opts = append(opts, attrmap.WithSuggester(nil))
	}
	if len(opts) == 0 {
		return app.Client()
	}
	return app.ClientWithOptions(opts...)
}

func readDocument(stdin io.Reader, source string) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.WrapIO("read", "stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, errors.WrapIO("read", source, err)
	}
	return data, nil
}
