package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [call_id]",
	Short: "Cancel a pending check-in call",
	Long:  `Cancel a check-in call that has not connected yet. Only queued and dialing calls can be canceled; a call already in progress runs to its natural end.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		callID := args[0]

		userID := viper.GetString("user")
		if userID == "" {
			cmd.Println("User ID not found. Please set it using the --user flag or the DAYBELL_USER environment variable")
			return
		}

		client := NewClient(viper.GetString("url"), userID)
		job, err := client.CancelCallJob(callID)
		if err != nil {
			cmd.Printf("Failed to cancel call: %v\n", err)
			return
		}

		cmd.Printf("%s Call canceled\n", statusIcon(job.Status))
		printCallStatus(cmd, *job)
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
