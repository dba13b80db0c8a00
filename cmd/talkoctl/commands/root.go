// Package commands implements the CLI commands for the talkoctl client.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/internal/cli/output"
	"github.com/marmos91/talko/pkg/client"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	dataAddr      string
	broadcastAddr string
	timeout       time.Duration
	outputFormat  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "talkoctl",
	Short: "Talko Control - chat client",
	Long: `talkoctl is the command-line client for a talko chat backend.

Use it to manage users and chats, send and list messages, and follow a
user's push stream from the terminal.

Use "talkoctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&dataAddr, "data-addr", "127.0.0.1:8888", "Data server address (host:port)")
	rootCmd.PersistentFlags().StringVar(&broadcastAddr, "broadcast-addr", "127.0.0.1:8889", "Broadcast server address (host:port)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(streamCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// newClient builds a client from the global flags.
func newClient() *client.Client {
	return client.New(client.Config{
		DataAddress:      dataAddr,
		BroadcastAddress: broadcastAddr,
		RequestTimeout:   timeout,
	})
}

// jsonOutput reports whether --output json was requested.
func jsonOutput() (bool, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return false, err
	}
	switch format {
	case output.FormatJSON:
		return true, nil
	case output.FormatTable:
		return false, nil
	default:
		return false, fmt.Errorf("unsupported output format %q (use table or json)", outputFormat)
	}
}

// printResult renders data as JSON or hands it to the table renderer.
func printResult(data any, renderTable func() *output.TableData) error {
	asJSON, err := jsonOutput()
	if err != nil {
		return err
	}
	if asJSON {
		return output.PrintJSON(os.Stdout, data)
	}
	return output.PrintTable(os.Stdout, renderTable())
}
