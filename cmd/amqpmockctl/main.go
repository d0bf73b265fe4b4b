// Command amqpmockctl is a thin CLI wrapper around amqpmockd's HTTP control
// API, in the manner of oriys-nova's cmd/nova Cobra command tree. It is a
// convenience client, not part of the broker's correctness surface
// (spec.md §1: "the client-side convenience wrapper for the HTTP API").
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var addr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "amqpmockctl",
		Short: "Control client for the amqpmock broker's HTTP API",
		Long:  "amqpmockctl drives amqpmockd's side-channel HTTP control API: reset state, inspect exchange publishes and queue delivery history.",
	}

	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:80", "amqpmockd control API base URL")

	rootCmd.AddCommand(
		resetCmd(),
		historyCmd(),
		exchangeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear every exchange, queue, binding and history record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodDelete, addr+"/", nil)
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <queue>",
		Short: "Show the delivery-lifecycle history for a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, fmt.Sprintf("%s/queues/%s/messages/history", addr, args[0]), nil)
		},
	}
}

func exchangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Inspect or clear an exchange's published-message log",
	}
	cmd.AddCommand(exchangeMessagesCmd(), exchangeClearCmd())
	return cmd
}

func exchangeMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <exchange>",
		Short: "List messages published to an exchange, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, fmt.Sprintf("%s/exchanges/%s/messages", addr, args[0]), nil)
		},
	}
}

func exchangeClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <exchange>",
		Short: "Clear an exchange's published-message log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodDelete, fmt.Sprintf("%s/exchanges/%s/messages", addr, args[0]), nil)
		},
	}
}

// doRequest issues an HTTP request against amqpmockd's control API and
// pretty-prints the JSON response body to stdout.
func doRequest(method, url string, body io.Reader) error {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("amqpmockctl: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("amqpmockctl: %s %s: %s: %s", method, url, resp.Status, string(raw))
	}
	if len(raw) == 0 || string(raw) == "null" {
		fmt.Println("ok")
		return nil
	}

	var pretty any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
