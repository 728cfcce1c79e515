package main

import (
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/mrjvadi/litter/broker"
)

func newPublishCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <channel> [json-body]",
		Short: "Publish a notification",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := parseBody(args[1:])
			if err != nil {
				return err
			}
			app, done, err := connect(cmd.Context(), g, "")
			if err != nil {
				return err
			}
			defer done()

			n, err := app.Publish(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published to %s (%d receivers)\n", args[0], n)
			return nil
		},
	}
}

func newRequestCmd(g *globalFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "request <channel> [json-body]",
		Short: "Send a request and print the reply",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := parseBody(args[1:])
			if err != nil {
				return err
			}
			app, done, err := connect(cmd.Context(), g, "")
			if err != nil {
				return err
			}
			defer done()

			resp, err := app.Request(cmd.Context(), args[0], body, timeout)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", broker.DefaultRequestTimeout, "how long to wait for the reply")
	return cmd
}

func newIterCmd(g *globalFlags) *cobra.Command {
	var (
		timeout  time.Duration
		maxCount int
	)
	cmd := &cobra.Command{
		Use:   "iter <channel> [json-body]",
		Short: "Send a request and print every reply until none arrives in time",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := parseBody(args[1:])
			if err != nil {
				return err
			}
			app, done, err := connect(cmd.Context(), g, "")
			if err != nil {
				return err
			}
			defer done()

			it, err := app.IterRequest(cmd.Context(), args[0], body, timeout, maxCount)
			if err != nil {
				return err
			}
			for it.Next(cmd.Context()) {
				if err := printResponse(cmd.OutOrStdout(), it.Val()); err != nil {
					return err
				}
			}
			if err := it.Err(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d replies\n", it.Count())
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "how long to wait for each reply")
	cmd.Flags().IntVarP(&maxCount, "max", "m", 0, "stop after this many replies (0 means no limit)")
	return cmd
}

func printResponse(w io.Writer, resp *broker.Response) error {
	from := resp.Headers.String(broker.HeaderName)
	if !resp.Success() {
		_, err := fmt.Fprintf(w, "%s: exception %s\n", from, resp.Err())
		return err
	}
	out, err := sonic.ConfigStd.MarshalIndent(resp.Body, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s: %s\n", from, out)
	return err
}
