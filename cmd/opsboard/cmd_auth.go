package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/miradorstack/opsboard/internal/auth"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password, code string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email, password and the second factor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session := c.app.Session
			if err := session.Login(ctx, auth.Credentials{Email: email, Password: password}); err != nil {
				return err
			}
			if session.Snapshot().MFAPending {
				if code == "" {
					fmt.Fprint(c.out, "MFA code: ")
					line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					if err != nil && line == "" {
						return fmt.Errorf("read mfa code: %w", err)
					}
					code = strings.TrimSpace(line)
				}
				if err := session.VerifyMFA(ctx, code); err != nil {
					return err
				}
			}
			user := session.Snapshot().User
			if c.jsonOut {
				return c.printJSON(user)
			}
			fmt.Fprintf(c.out, "Signed in as %s (%s)\n", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&code, "code", "", "MFA code; prompted for when omitted")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.app.Session.Logout(cmd.Context())
			fmt.Fprintln(c.out, "Signed out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			user := c.app.Session.Snapshot().User
			if c.jsonOut {
				return c.printJSON(user)
			}
			fmt.Fprintf(c.out, "%s <%s>\nroles: %s\nfeatures: %s\n",
				user.Name, user.Email, strings.Join(user.Roles, ", "), strings.Join(user.Features, ", "))
			return nil
		},
	}
}
