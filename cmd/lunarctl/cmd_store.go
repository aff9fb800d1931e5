package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dgnsrekt/lunarsession/internal/bookmarks"
	"github.com/dgnsrekt/lunarsession/internal/store"
	"github.com/spf13/cobra"
)

// openStore opens the settings store and seeds missing defaults.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	st, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	if err := st.Init(cmd.Context(), store.Defaults(envOr("LUNAR_WISP_URL", ""))); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func newBookmarksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List or toggle stored bookmarks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			list, err := bookmarks.New(st).List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDESTINATION")
			for _, b := range list {
				fmt.Fprintf(tw, "%s\t%s\n", b.Name, b.Destination)
			}
			return tw.Flush()
		},
	})

	var name string
	toggle := &cobra.Command{
		Use:   "toggle <destination>",
		Short: "Add or remove a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			added, err := bookmarks.New(st).Toggle(cmd.Context(), bookmarks.Bookmark{Name: name, Destination: args[0]})
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintln(cmd.OutOrStdout(), "added", args[0])
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "removed", args[0])
			}
			return nil
		},
	}
	toggle.Flags().StringVar(&name, "name", "", "Bookmark name (defaults to the destination)")
	cmd.AddCommand(toggle)
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or reset persisted settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			var v any
			if len(args) == 1 {
				ok, err := st.Get(cmd.Context(), args[0], &v)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no setting %q", args[0])
				}
			} else if v, err = st.All(cmd.Context()); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default settings and bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Reset(cmd.Context(), store.Defaults(envOr("LUNAR_WISP_URL", ""))); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "settings reset")
			return nil
		},
	})
	return cmd
}
