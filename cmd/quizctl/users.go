package main

import (
	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/spf13/cobra"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant the admin role to a user",
	Long: `Grant the admin role so the user may create categories and quizzes.
Access tokens issued before the change keep the old role until they expire.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], goQuiz.RoleAdmin)
	},
}

var demoteCmd = &cobra.Command{
	Use:   "demote <email>",
	Short: "Revoke the admin role from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], goQuiz.RoleUser)
	},
}

func setRole(cmd *cobra.Command, email, role string) error {
	d, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.store.SetRole(cmd.Context(), email, role); err != nil {
		return err
	}
	cmd.Printf("%s is now %s\n", email, role)
	return nil
}

func init() {
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(demoteCmd)
}
