// Package ctl implements memorialctl, the operator CLI for the memorial
// board: password hashing, secret generation and first-admin bootstrap.
package ctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/server/auth"
	"github.com/dmitrijs2005/memorialboard/internal/server/config"
	"github.com/dmitrijs2005/memorialboard/internal/server/services"
	"github.com/spf13/cobra"
)

// IO bundles the streams commands use; tests swap them out.
type IO struct {
	In  io.Reader
	Out io.Writer
	// HTTP is used for server calls; nil means a default client.
	HTTP *http.Client
}

// NewRootCommand builds the memorialctl command tree.
func NewRootCommand(stdio IO) *cobra.Command {
	root := &cobra.Command{
		Use:           "memorialctl",
		Short:         "Operator tools for the memorial board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdio.In)
	root.SetOut(stdio.Out)

	root.AddCommand(newHashPasswordCommand(), newBootstrapCommand(stdio.HTTP), newGenSecretCommand())
	return root
}

// readSecret reads a line from the command input when fromStdin is set and
// from the terminal otherwise.
func readSecret(cmd *cobra.Command, reader *bufio.Reader, fromStdin bool, prompt string) ([]byte, error) {
	if fromStdin {
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
	return GetPassword(cmd.OutOrStdout(), prompt)
}

func newHashPasswordCommand() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the stored form of a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd, bufio.NewReader(cmd.InOrStdin()), fromStdin, "Password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			if err := auth.ValidatePassword(string(pw)); err != nil {
				return err
			}
			hash, err := auth.HashPassword(string(pw))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from standard input instead of the terminal")
	return cmd
}

func newBootstrapCommand(hc *http.Client) *cobra.Command {
	var (
		serverURL string
		secret    string
		name      string
		email     string
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first approver on a fresh server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if secret == "" {
				secret = os.Getenv("BOOTSTRAP_SECRET")
			}

			var err error
			for _, f := range []struct {
				val    *string
				prompt string
			}{
				{&secret, "Bootstrap secret"},
				{&name, "Name"},
				{&email, "E-mail"},
			} {
				if *f.val != "" {
					continue
				}
				if *f.val, err = GetSimpleText(reader, f.prompt, out); err != nil {
					return err
				}
			}

			pw, err := readSecret(cmd, reader, fromStdin, "Password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			if err := auth.ValidatePassword(string(pw)); err != nil {
				return err
			}

			a, err := NewClient(serverURL, hc).Bootstrap(cmd.Context(), services.BootstrapInput{
				Secret:   secret,
				Name:     name,
				Email:    email,
				Password: string(pw),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Created approver %s <%s> (%s)\n", a.Name, a.Email, a.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "base URL of the memorial board server")
	cmd.Flags().StringVar(&secret, "secret", "", "bootstrap secret (default $BOOTSTRAP_SECRET)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "approver name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "approver e-mail")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from standard input instead of the terminal")
	return cmd
}

func newGenSecretCommand() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Print a random hex secret for SESSION_SECRET or BOOTSTRAP_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < config.MinSessionSecretLength/2 {
				return fmt.Errorf("size must be at least %d bytes", config.MinSessionSecretLength/2)
			}
			s, err := common.MakeRandHexString(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "number of random bytes")
	return cmd
}

// Execute runs the CLI with the process streams.
func Execute(ctx context.Context) error {
	return NewRootCommand(IO{In: os.Stdin, Out: os.Stdout}).ExecuteContext(ctx)
}
