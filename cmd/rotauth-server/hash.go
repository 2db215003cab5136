package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/rotauth/password"
)

func newHasher(algorithm string, bcryptCost int) (*password.Auto, error) {
	return password.New(algorithm, bcryptCost, password.DefaultArgon2Params())
}

func newHashPasswordCmd() *cobra.Command {
	var (
		algorithm string
		cost      int
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin for the users table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hasher, err := newHasher(algorithm, cost)
			if err != nil {
				return err
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			plaintext := strings.TrimRight(line, "\r\n")
			if plaintext == "" {
				return errors.New("empty password")
			}

			hash, err := hasher.Hash(plaintext)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().StringVar(&algorithm, "algorithm", password.AlgorithmBcrypt, "bcrypt or argon2id")
	cmd.Flags().IntVar(&cost, "cost", password.DefaultBcryptCost, "bcrypt cost")
	return cmd
}
