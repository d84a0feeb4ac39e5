package cli

import (
	"errors"
	"fmt"

	"mcq-quiz-service/internal/auth"

	"github.com/spf13/cobra"
)

// NewHashPasswordCmd prints a bcrypt hash for admin.password_hash.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash to use as admin.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("password must not be empty")
			}
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
