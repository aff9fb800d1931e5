package main

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/lunarsession/internal/codec"
	"github.com/dgnsrekt/lunarsession/internal/omnibox"
	"github.com/spf13/cobra"
)

func newEncodeCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "encode <destination>",
		Short: "Encode a destination into a routed path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := codec.NewDefaultRegistry()
			if _, ok := reg.Get(backend); !ok {
				return fmt.Errorf("unknown backend %q (have %s)", backend, strings.Join(reg.Names(), ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), reg.Encode(backend, args[0]))
			return nil
		},
	}
	cmd.Flags().StringVarP(&backend, "backend", "b", codec.BackendScramjet, "Codec backend")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <address>",
		Short: "Decode a routed path back to its destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), codec.NewDefaultRegistry().Decode(args[0]))
			return nil
		},
	}
}

func newClassifyCmd() *cobra.Command {
	var engine string
	cmd := &cobra.Command{
		Use:   "classify <input>",
		Short: "Show how address-bar input would be handled",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := omnibox.Normalize(strings.Join(args, " "), engine)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "kind:    %s\n", d.Kind)
			fmt.Fprintf(w, "address: %s\n", d.Address)
			fmt.Fprintf(w, "local:   %t\n", d.Local)
			return nil
		},
	}
	cmd.Flags().StringVar(&engine, "engine", omnibox.DefaultEngine, "Search engine prefix")
	return cmd
}

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an arithmetic expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := strings.Join(args, " ")
			out, ok := omnibox.Eval(expr)
			if !ok {
				return fmt.Errorf("not an arithmetic expression: %q", expr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
