package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spec-kit/user-service/internal/sum"
)

const methodAll = "all"

func newSumCmd() *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "sum <n>",
		Short: "Print 1 + 2 + ... + n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("n must be an integer: %w", err)
			}

			methods := []sum.Method{sum.Method(method)}
			if method == methodAll {
				methods = sum.Methods
			}
			for _, m := range methods {
				total, err := sum.Compute(m, n)
				if err != nil {
					return fmt.Errorf("%s: %w", m, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", m, total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", methodAll, "iterative, recursive, formula or all")
	return cmd
}
