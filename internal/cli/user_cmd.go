package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management",
	Long:  `Manage platform users: create, list and reset passwords.`,
}

// userCreateCmd creates a new user
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long:  `Interactively create a new user with username, password and nickname.`,
	Run: func(cmd *cobra.Command, args []string) {
		if userService == nil {
			fmt.Fprintln(os.Stderr, "error: user service not initialized")
			os.Exit(1)
		}

		reader := bufio.NewReader(os.Stdin)

		fmt.Print("Username: ")
		username, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to read input: %v\n", err)
			os.Exit(1)
		}
		username = strings.TrimSpace(username)
		if username == "" {
			fmt.Fprintln(os.Stderr, "error: username cannot be empty")
			os.Exit(1)
		}

		fmt.Print("Password (min 6 characters): ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		password := string(passwordBytes)
		if len(password) < 6 {
			fmt.Fprintln(os.Stderr, "error: password must be at least 6 characters")
			os.Exit(1)
		}

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		if password != string(confirmBytes) {
			fmt.Fprintln(os.Stderr, "error: passwords do not match")
			os.Exit(1)
		}

		fmt.Print("Nickname (optional, enter to skip): ")
		nickname, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to read input: %v\n", err)
			os.Exit(1)
		}
		nickname = strings.TrimSpace(nickname)
		if nickname == "" {
			nickname = username
		}

		newUser, err := userService.CreateUser(username, password, nickname)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to create user: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		fmt.Println("User created.")
		fmt.Printf("  ID: %d\n", newUser.ID)
		fmt.Printf("  Username: %s\n", newUser.Username)
		fmt.Printf("  Nickname: %s\n", newUser.Nickname)
	},
}

// userListCmd lists all users
var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Run: func(cmd *cobra.Command, args []string) {
		if userService == nil {
			fmt.Fprintln(os.Stderr, "error: user service not initialized")
			os.Exit(1)
		}

		users, err := userService.ListUsers()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to list users: %v\n", err)
			os.Exit(1)
		}

		if len(users) == 0 {
			fmt.Println("No users yet.")
			return
		}

		fmt.Println("Users:")
		fmt.Println("----------------------------------------")
		fmt.Printf("%-6s %-20s %-20s %s\n", "ID", "Username", "Nickname", "Created")
		fmt.Println("----------------------------------------")
		for _, u := range users {
			createdAt := u.CreatedAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%-6d %-20s %-20s %s\n", u.ID, u.Username, u.Nickname, createdAt)
		}
		fmt.Println("----------------------------------------")
		fmt.Printf("%d user(s)\n", len(users))
	},
}

// userResetPwdCmd resets a user's password
var userResetPwdCmd = &cobra.Command{
	Use:   "reset-pwd",
	Short: "Reset a user's password",
	Long:  `Interactively reset a user's password. This operation asks for confirmation.`,
	Run: func(cmd *cobra.Command, args []string) {
		if userService == nil {
			fmt.Fprintln(os.Stderr, "error: user service not initialized")
			os.Exit(1)
		}

		reader := bufio.NewReader(os.Stdin)

		users, err := userService.ListUsers()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to list users: %v\n", err)
			os.Exit(1)
		}

		if len(users) == 0 {
			fmt.Println("No users yet.")
			return
		}

		fmt.Println("Available users:")
		for _, u := range users {
			fmt.Printf("  [%d] %s (%s)\n", u.ID, u.Username, u.Nickname)
		}
		fmt.Println()

		fmt.Print("User ID to reset: ")
		idStr, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to read input: %v\n", err)
			os.Exit(1)
		}
		idStr = strings.TrimSpace(idStr)
		userID, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error: invalid user ID")
			os.Exit(1)
		}

		targetUser, err := userService.GetUserByID(uint(userID))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: user not found: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nWarning: about to reset the password of '%s' (ID: %d).\n", targetUser.Username, targetUser.ID)
		fmt.Print("Continue? (yes/no): ")
		confirm, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to read input: %v\n", err)
			os.Exit(1)
		}
		confirm = strings.TrimSpace(strings.ToLower(confirm))
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Cancelled.")
			return
		}

		fmt.Print("New password (min 6 characters): ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		newPassword := string(passwordBytes)
		if len(newPassword) < 6 {
			fmt.Fprintln(os.Stderr, "error: password must be at least 6 characters")
			os.Exit(1)
		}

		fmt.Print("Confirm new password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: failed to read password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		if newPassword != string(confirmBytes) {
			fmt.Fprintln(os.Stderr, "error: passwords do not match")
			os.Exit(1)
		}

		if err := userService.ResetPassword(uint(userID), newPassword); err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to reset password: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		fmt.Printf("Password for '%s' has been reset.\n", targetUser.Username)
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userResetPwdCmd)
}
