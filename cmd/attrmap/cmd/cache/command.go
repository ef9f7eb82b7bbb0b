// Package cache provides commands for inspecting and editing the
// equivalence cache learned builds write to.
package cache

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/agentstation/attrmap/internal/appcontext"
	"github.com/agentstation/attrmap/internal/cmd/output"
	"github.com/agentstation/attrmap/internal/matcher"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/errors"
)

// NewCommand creates the cache command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cache",
		GroupID: "management",
		Short:   "Inspect and edit learned equivalences",
		Long: `Cache manages the equivalence cache: the aliases learned from the
suggestion model and reused by later builds.`,
		Example: `  attrmap cache show
  attrmap cache show BRAND MODEL -o json
  attrmap cache forget COLOR
  attrmap cache forget 'SELLER_PACKAGE_*'
  attrmap cache clear --force`,
	}

	cmd.AddCommand(
		newShowCommand(app),
		newPathCommand(app),
		newForgetCommand(app),
		newClearCommand(app),
	)
	return cmd
}

func newShowCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "show [pattern...]",
		Short: "Show learned aliases, optionally only for ids matching glob patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), constants.DefaultTimeout)
			defer cancel()

			store, err := storeOf(app)
			if err != nil {
				return err
			}
			c, err := store.Load(ctx)
			if err != nil {
				app.Logger().Warn().Err(err).Str("store", store.Location()).Msg("Equivalence cache unreadable, showing it empty")
			}
			if len(args) > 0 {
				if c, err = subset(c, args); err != nil {
					return err
				}
			}

			format, err := outputFormat(app)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, c, output.CacheData(c))
		},
	}
}

func newPathCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := storeOf(app)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), store.Location())
			return err
		},
	}
}

func newForgetCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <pattern...>",
		Short: "Remove the learned aliases of ids matching glob patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), constants.DefaultTimeout)
			defer cancel()

			store, err := storeOf(app)
			if err != nil {
				return err
			}
			ids, err := expand(ctx, store, args)
			if err != nil {
				return err
			}
			removed, err := equivalence.Forget(ctx, store, ids...)
			if err != nil {
				return errors.WrapResource("update", "equivalence cache", store.Location(), err)
			}

			app.Logger().Info().Strs("ids", removed).Str("store", store.Location()).Msg("Forgot equivalences")
			if len(removed) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to forget")
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d of %d ids\n", len(removed), len(ids))
			return err
		},
	}
}

func newClearCommand(app appcontext.Interface) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every learned alias",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return errors.NewValidationError("force", false, "clear drops every learned alias; pass --force to confirm")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), constants.DefaultTimeout)
			defer cancel()

			store, err := storeOf(app)
			if err != nil {
				return err
			}
			if clearer, ok := store.(equivalence.Clearer); ok {
				err = clearer.Clear(ctx)
			} else {
				err = store.Save(ctx, equivalence.Cache{})
			}
			if err != nil {
				return errors.WrapResource("clear", "equivalence cache", store.Location(), err)
			}

			app.Logger().Info().Str("store", store.Location()).Msg("Cleared equivalence cache")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Cleared", store.Location())
			return err
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm clearing the cache")
	return cmd
}

func storeOf(app appcontext.Interface) (equivalence.Store, error) {
	client, err := app.Client()
	if err != nil {
		return nil, err
	}
	return client.Store(), nil
}

func outputFormat(app appcontext.Interface) (output.Format, error) {
	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return "", err
	}
	return output.DetectFormat(string(format)), nil
}

// subset keeps the ids of c matching any pattern.
func subset(c equivalence.Cache, patterns []string) (equivalence.Cache, error) {
	set, err := matcher.Compile(patterns...)
	if err != nil {
		return nil, err
	}
	out := equivalence.Cache{}
	for id, aliases := range c {
		if set.Match(id) {
			out[id] = aliases
		}
	}
	return out, nil
}

// expand replaces glob patterns with the cached ids they match. Plain ids
// are kept as given.
func expand(ctx context.Context, store equivalence.Store, args []string) ([]string, error) {
	var globs, ids []string
	for _, arg := range args {
		if matcher.IsGlobPattern(arg) {
			globs = append(globs, arg)
		} else {
			ids = append(ids, arg)
		}
	}
	if len(globs) == 0 {
		return ids, nil
	}

	set, err := matcher.Compile(globs...)
	if err != nil {
		return nil, err
	}
	c, err := store.Load(ctx)
	if err != nil {
		return nil, errors.WrapResource("load", "equivalence cache", store.Location(), err)
	}
	for _, id := range set.Filter(c.IDs()...) {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
