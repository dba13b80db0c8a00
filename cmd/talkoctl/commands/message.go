package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/internal/cli/output"
	"github.com/marmos91/talko/internal/cli/prompt"
)

var (
	messageSendChatID int64
	messageSendUserID int64
	messageSendText   string
	messageListChatID int64
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Message management",
	Long: `Send and list chat messages.

The server stamps message timestamps at insert time; online participants
other than the sender receive the message on their streams.

Examples:
  # Send a message
  talkoctl message send --chat-id 1 --user-id 2 --text "hello"

  # Send with the text prompted interactively
  talkoctl message send --chat-id 1 --user-id 2

  # List a chat's messages, oldest first
  talkoctl message list --chat-id 1`,
}

var messageSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message to a chat",
	RunE:  runMessageSend,
}

var messageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a chat's messages",
	RunE:  runMessageList,
}

func init() {
	messageSendCmd.Flags().Int64Var(&messageSendChatID, "chat-id", 0, "Chat id (required)")
	messageSendCmd.Flags().Int64Var(&messageSendUserID, "user-id", 0, "Sending user id (required)")
	messageSendCmd.Flags().StringVar(&messageSendText, "text", "", "Message text (prompts if not provided)")
	_ = messageSendCmd.MarkFlagRequired("chat-id")
	_ = messageSendCmd.MarkFlagRequired("user-id")

	messageListCmd.Flags().Int64Var(&messageListChatID, "chat-id", 0, "Chat id (required)")
	_ = messageListCmd.MarkFlagRequired("chat-id")

	messageCmd.AddCommand(messageSendCmd)
	messageCmd.AddCommand(messageListCmd)
}

func runMessageSend(cmd *cobra.Command, args []string) error {
	text := messageSendText
	if text == "" {
		var err error
		text, err = prompt.InputRequired("Message")
		if err != nil {
			return err
		}
	}

	msg, err := newClient().InsertMessage(context.Background(), messageSendChatID, messageSendUserID, text)
	if err != nil {
		return err
	}

	return printResult(msg, func() *output.TableData {
		table := output.NewTableData("ID", "Chat", "Sender", "Sent", "Text")
		table.AddRow(
			strconv.FormatInt(msg.MessageID, 10),
			strconv.FormatInt(msg.ChatID, 10),
			msg.User.UserName,
			formatTS(msg.MessageTS),
			msg.MessageText,
		)
		return table
	})
}

func runMessageList(cmd *cobra.Command, args []string) error {
	messages, err := newClient().GetMessages(context.Background(), messageListChatID)
	if err != nil {
		return err
	}

	return printResult(messages, func() *output.TableData {
		table := output.NewTableData("ID", "Sender", "Sent", "Text")
		for _, msg := range messages {
			table.AddRow(
				strconv.FormatInt(msg.MessageID, 10),
				msg.User.UserName,
				formatTS(msg.MessageTS),
				msg.MessageText,
			)
		}
		return table
	})
}
