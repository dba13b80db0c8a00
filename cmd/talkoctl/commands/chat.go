package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/internal/cli/output"
	"github.com/marmos91/talko/internal/cli/prompt"
	"github.com/marmos91/talko/pkg/protocol"
)

var (
	chatCreateName    string
	chatCreateUserIDs []int64
	chatListUserID    int64
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat management",
	Long: `Manage chats on the talko server.

Creating a chat with exactly two participants makes it private: repeating
the call for the same pair returns the existing chat instead of creating
a duplicate.

Examples:
  # Create a group chat
  talkoctl chat create --name team --user-ids 1,2,3

  # Create a chat interactively
  talkoctl chat create

  # List a user's chats, newest activity first
  talkoctl chat list --user-id 1`,
}

var chatCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new chat",
	RunE:  runChatCreate,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's chats",
	RunE:  runChatList,
}

func init() {
	chatCreateCmd.Flags().StringVar(&chatCreateName, "name", "", "Chat name (prompts if not provided)")
	chatCreateCmd.Flags().Int64SliceVar(&chatCreateUserIDs, "user-ids", nil, "Participant user ids (prompts if not provided)")
	chatListCmd.Flags().Int64Var(&chatListUserID, "user-id", 0, "User id (required)")
	_ = chatListCmd.MarkFlagRequired("user-id")

	chatCmd.AddCommand(chatCreateCmd)
	chatCmd.AddCommand(chatListCmd)
}

func runChatCreate(cmd *cobra.Command, args []string) error {
	name := chatCreateName
	if name == "" {
		var err error
		name, err = prompt.InputRequired("Chat name")
		if err != nil {
			return err
		}
	}

	userIDs := chatCreateUserIDs
	if len(userIDs) == 0 {
		raw, err := prompt.InputRequired("Participant ids (comma-separated)")
		if err != nil {
			return err
		}
		userIDs, err = parseIDList(raw)
		if err != nil {
			return err
		}
	}

	chat, err := newClient().InsertChat(context.Background(), name, userIDs)
	if err != nil {
		return err
	}

	return printResult(chat, func() *output.TableData {
		table := output.NewTableData("ID", "Name", "Participants")
		table.AddRow(strconv.FormatInt(chat.ChatID, 10), chat.ChatName, userNames(chat.Users))
		return table
	})
}

func runChatList(cmd *cobra.Command, args []string) error {
	chats, err := newClient().GetChats(context.Background(), chatListUserID)
	if err != nil {
		return err
	}

	return printResult(chats, func() *output.TableData {
		table := output.NewTableData("ID", "Name", "Participants", "Messages", "Last Activity")
		for _, chat := range chats {
			last := "-"
			if n := len(chat.Messages); n > 0 {
				last = formatTS(chat.Messages[n-1].MessageTS)
			}
			table.AddRow(
				strconv.FormatInt(chat.ChatID, 10),
				chat.ChatName,
				userNames(chat.Users),
				strconv.Itoa(len(chat.Messages)),
				last,
			)
		}
		return table
	})
}

// parseIDList parses a comma-separated id list like "1,2,3".
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no user ids given")
	}
	return ids, nil
}

// userNames renders a participant list as "alice, bob".
func userNames(users []protocol.User) string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.UserName
	}
	return strings.Join(names, ", ")
}

// formatTS renders a Unix-millisecond timestamp in local time.
func formatTS(ts int64) string {
	return time.UnixMilli(ts).Local().Format("2006-01-02 15:04:05")
}
