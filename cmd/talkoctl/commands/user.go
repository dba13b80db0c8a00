package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/internal/cli/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management",
	Long: `Manage users on the talko server.

Examples:
  # Create a user
  talkoctl user add alice

  # Look a user up by id
  talkoctl user get 1`,
}

var userAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a new user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Look a user up by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserGet,
}

func init() {
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userGetCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	user, err := newClient().InsertUser(context.Background(), args[0])
	if err != nil {
		return err
	}

	return printResult(user, func() *output.TableData {
		table := output.NewTableData("ID", "Name")
		table.AddRow(strconv.FormatInt(user.UserID, 10), user.UserName)
		return table
	})
}

func runUserGet(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return err
	}

	user, err := newClient().GetUser(context.Background(), userID)
	if err != nil {
		return err
	}

	return printResult(user, func() *output.TableData {
		table := output.NewTableData("ID", "Name")
		table.AddRow(strconv.FormatInt(user.UserID, 10), user.UserName)
		return table
	})
}
