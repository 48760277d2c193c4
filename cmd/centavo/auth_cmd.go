package main

import (
	"fmt"
	"os"

	"github.com/Urientropy/centavo/auth"
	"github.com/spf13/cobra"
)

// passwordEnv lets scripts log in without a password flag.
const passwordEnv = "CENTAVO_PASSWORD"

func newLoginCmd(c *cli) *cobra.Command {
	var creds auth.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if creds.Password == "" {
				creds.Password = os.Getenv(passwordEnv)
			}
			if err := a.Auth.Login(cmd.Context(), creds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sSigned in%s as %s\n", Green, ResetColor, creds.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (or "+passwordEnv+")")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var reg auth.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a business account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if reg.Password == "" {
				reg.Password = os.Getenv(passwordEnv)
			}
			if err := a.Auth.Register(cmd.Context(), reg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sRegistered%s %s for %s\n", Green, ResetColor, reg.Email, reg.TenantName)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&reg.TenantName, "business", "", "business name")
	flags.StringVar(&reg.Email, "email", "", "account email")
	flags.StringVar(&reg.Password, "password", "", "account password (or "+passwordEnv+")")
	flags.StringVar(&reg.FirstName, "first-name", "", "first name")
	flags.StringVar(&reg.LastName, "last-name", "", "last name")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if !a.Auth.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			return a.Auth.Logout(cmd.Context())
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			s := a.Auth.Session()
			if !s.IsAuthenticated() || s.User == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			displayAppname(cmd.OutOrStdout(), c.cfg.GetAppName())
			status := Green + "valid" + ResetColor
			if a.Auth.AccessTokenExpired() {
				status = Yellow + "expired, renewed on next request" + ResetColor
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\naccess token: %s\n", s.User.FirstName, s.User.Email, status)
			return nil
		},
	}
}
