package cli

import (
	"fmt"
	"pharmacist/internal/services"

	"github.com/spf13/cobra"
)

var vapidKeysCmd = &cobra.Command{
	Use:   "vapid-keys",
	Short: "Generate a VAPID key pair for web push",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, publicKey, err := services.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", publicKey)
		fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", privateKey)
		return nil
	},
}
