package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register EMAIL",
	Short: "Create an account on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newClient("register")
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := readNewSecret("Password")
		if err != nil {
			return err
		}
		if err := a.Register(cmd.Context(), args[0], password); err != nil {
			return err
		}
		fmt.Printf("Registered %s\n", args[0])
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Sign in and remember the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newClient("login")
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := readSecret("Password")
		if err != nil {
			return err
		}
		if err := a.Login(cmd.Context(), args[0], password); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", args[0])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newClient("logout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newClient("whoami")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.LoggedIn() {
			return fmt.Errorf("not logged in")
		}
		u, err := a.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s  (since %s)\n", u.Email, u.CreatedAt.Format("2006-01-02"))
		return nil
	},
}
