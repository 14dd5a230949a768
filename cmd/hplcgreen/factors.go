package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/report"
	"github.com/verte-zerg/hplcgreen/internal/store"
)

var factorsReplace bool

func newFactorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factors",
		Short: "Manage the stored reagent factor table",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reagent factors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withFactorTable(cmd, func(_ context.Context, _ *store.Store, t *factors.Table) (bool, error) {
				return false, report.RenderFactors(cmd.OutOrStdout(), t.All())
			})
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export <file.yaml>",
		Short: "Write the factor table as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFactorTable(cmd, func(_ context.Context, _ *store.Store, t *factors.Table) (bool, error) {
				if err := factors.WriteFile(args[0], t.All()); err != nil {
					return false, fmt.Errorf("failed to export factors: %w", err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Exported %d reagents to %s\n", t.Len(), args[0])
				return false, err
			})
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Merge a YAML factor table into the stored one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := factors.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to import factors: %w", err)
			}
			return withFactorTable(cmd, func(ctx context.Context, st *store.Store, t *factors.Table) (bool, error) {
				if factorsReplace {
					if err := st.SaveFactors(ctx, doc.Reagents, factors.DataVersion); err != nil {
						return false, fmt.Errorf("failed to save factors: %w", err)
					}
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "Replaced factor table with %d reagents\n", len(doc.Reagents))
					return false, err
				}
				added, updated, err := mergeFactors(t, doc.Reagents)
				if err != nil {
					return false, err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new, %d updated reagents\n", added, updated)
				return true, err
			})
		},
	}
	importCmd.Flags().BoolVar(&factorsReplace, "replace", false, "replace the whole table instead of merging")

	resetCmd := &cobra.Command{
		Use:   "reset [name]",
		Short: "Restore one reagent, or the whole table, to predefined values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFactorTable(cmd, func(ctx context.Context, st *store.Store, t *factors.Table) (bool, error) {
				if len(args) == 0 {
					if err := st.SaveFactors(ctx, factors.Predefined(), factors.DataVersion); err != nil {
						return false, fmt.Errorf("failed to save factors: %w", err)
					}
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "Factor table reset to predefined values")
					return false, err
				}
				if err := t.ResetToOriginal(args[0]); err != nil {
					return false, err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", args[0])
				return true, err
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a reagent from the table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFactorTable(cmd, func(_ context.Context, _ *store.Store, t *factors.Table) (bool, error) {
				if err := t.Delete(args[0]); err != nil {
					return false, err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return true, err
			})
		},
	}

	cmd.AddCommand(listCmd, exportCmd, importCmd, resetCmd, deleteCmd)
	return cmd
}

// withFactorTable opens the store, loads the current table and saves it back
// when fn reports a change.
func withFactorTable(cmd *cobra.Command, fn func(context.Context, *store.Store, *factors.Table) (bool, error)) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	items, err := storeFactors(ctx, st, e.log)
	if err != nil {
		return err
	}
	table, err := factors.NewTable(items)
	if err != nil {
		return fmt.Errorf("stored factor table is invalid: %w", err)
	}
	changed, err := fn(ctx, st, table)
	if err != nil || !changed {
		return err
	}
	if err := st.SaveFactors(ctx, table.All(), factors.DataVersion); err != nil {
		return fmt.Errorf("failed to save factors: %w", err)
	}
	e.log.Info("factor table saved", "reagents", table.Len())
	return nil
}

// mergeFactors updates reagents already in t by name and adds the rest as
// custom entries.
func mergeFactors(t *factors.Table, incoming []model.ReagentFactor) (added, updated int, err error) {
	for _, f := range incoming {
		if _, ok := t.Lookup(f.Name); ok {
			if err := t.Update(f.Name, f); err != nil {
				return added, updated, err
			}
			updated++
			continue
		}
		if _, err := t.AddCustom(f); err != nil {
			return added, updated, err
		}
		added++
	}
	return added, updated, nil
}
