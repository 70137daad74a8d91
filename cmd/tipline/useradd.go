package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tipline/internal/record"
)

var useraddCmd = &cobra.Command{
	Use:   "useradd <email>",
	Short: "Create a reviewer or admin account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUseradd,
}

func init() {
	rootCmd.AddCommand(useraddCmd)
	useraddCmd.Flags().String("name", "", "Display name")
	useraddCmd.Flags().String("role", record.RoleReviewer, "Role: admin or reviewer")
	useraddCmd.Flags().String("password", "", "Password (prompted when omitted)")
}

func runUseradd(cmd *cobra.Command, args []string) error {
	email := args[0]
	name, _ := cmd.Flags().GetString("name")
	role, _ := cmd.Flags().GetString("role")
	password, _ := cmd.Flags().GetString("password")

	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(string(raw))
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.authMgr.CreateUser(email, name, password, role)
	if err != nil {
		return err
	}

	fmt.Printf("Created user %s (id %d, role %s)\n", user.Email, user.Id, user.Role)
	return nil
}
