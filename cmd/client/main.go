// cmd/client is the CLI entry-point built with Cobra.
//
// Usage:
//
//	abdctl get                         --server http://localhost:8080
//	abdctl put '{"k":1}'               --server http://localhost:8080
//	abdctl health                      --server http://localhost:8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"abdreg/internal/client"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "abdctl",
		Short: "CLI client for the ABD atomic register cluster",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8080", "replica address to talk to")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(getCmd(), putCmd(), healthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ─── get ──────────────────────────────────────────────────────────────────────

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Read the register's current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			v, err := c.Get(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(v)
			return nil
		},
	}
}

// ─── put ──────────────────────────────────────────────────────────────────────

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <json-value>",
		Short: "Write a new value into the register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[0])) {
				return fmt.Errorf("value is not valid JSON: %s", args[0])
			}
			c := client.New(serverAddr, timeout)
			if err := c.Put(context.Background(), json.RawMessage(args[0])); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

// ─── health ───────────────────────────────────────────────────────────────────

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report the replica's liveness and operation counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			ctx := context.Background()
			resp, err := c.GetRaw(ctx, "/health")
			if err != nil {
				return err
			}
			fmt.Println(resp)
			metricsResp, err := c.GetRaw(ctx, "/metrics")
			if err != nil {
				return err
			}
			fmt.Println(metricsResp)
			return nil
		},
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
