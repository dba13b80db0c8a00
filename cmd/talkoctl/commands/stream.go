package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/internal/cli/output"
)

var streamUserID int64

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Follow a user's push stream",
	Long: `Open a push stream for a user and print incoming messages until
interrupted.

Each message a chat participant sends while the stream is open is pushed
by the broadcast server and printed as it arrives. On Ctrl+C the stream
is closed and unregistered from the server.

Examples:
  # Follow pushes for user 2
  talkoctl stream --user-id 2

  # Print pushes as JSON lines
  talkoctl stream --user-id 2 --output json`,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().Int64Var(&streamUserID, "user-id", 0, "User id (required)")
	_ = streamCmd.MarkFlagRequired("user-id")
}

func runStream(cmd *cobra.Command, args []string) error {
	asJSON, err := jsonOutput()
	if err != nil {
		return err
	}

	c := newClient()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := c.OpenStream(ctx, streamUserID)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	fmt.Fprintf(os.Stderr, "Streaming messages for user %d (Ctrl+C to stop)...\n", streamUserID)

	for {
		select {
		case <-ctx.Done():
			// Unregister server-side before tearing the connection down.
			stop()
			if err := c.CloseStream(context.Background(), streamUserID); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to unregister stream: %v\n", err)
			}
			return nil

		case msg, ok := <-stream.Messages():
			if !ok {
				return stream.Err()
			}
			if asJSON {
				if err := output.PrintJSONCompact(os.Stdout, msg); err != nil {
					return err
				}
				continue
			}
			fmt.Printf("[%s] chat %d %s: %s\n",
				formatTS(msg.MessageTS), msg.ChatID, msg.User.UserName, msg.MessageText)
		}
	}
}
