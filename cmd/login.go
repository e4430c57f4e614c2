package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guilhermegouw/cadence/internal/credentials"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the server token in the OS keyring",
		Long: `Store the bearer token used for the sync server and realtime channel
in the OS keyring. The token is read from --token, or prompted for.

The CADENCE_TOKEN environment variable and server.token in the config file
take precedence over the keyring.`,
		RunE: runLogin,
	}
	cmd.Flags().String("token", "", "Token to store (prompted for when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the server token from the OS keyring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := credentials.New(os.Getenv("USER"), cfg.Server.Token).Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token removed")
			return nil
		},
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return fmt.Errorf("getting token flag: %w", err)
	}
	if token == "" {
		token, err = promptToken(cmd)
		if err != nil {
			return err
		}
	}

	cfg, cleanup, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	store := credentials.New(os.Getenv("USER"), cfg.Server.Token)
	if err := store.Save(token); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Token saved to the keyring")
	if _, origin, lerr := store.Lookup(); lerr == nil && origin != credentials.OriginKeyring {
		fmt.Fprintf(out, "Note: the token from %s takes precedence\n", origin)
	}
	return nil
}

func promptToken(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}
