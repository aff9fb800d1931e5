// Command lunarctl inspects codecs, address classification and the persisted
// settings store without a running session daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var storePath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lunarctl",
		Short:         "Offline tools for the lunar session layer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&storePath, "store", envOr("LUNAR_STORE_PATH", "./data/lunar.db"), "Settings store path")

	root.AddCommand(newEncodeCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newClassifyCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newBookmarksCmd())
	root.AddCommand(newConfigCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
