package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"daybell/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [call_id]",
	Short: "Get status of a check-in call",
	Long:  `Retrieve detailed status information for a check-in call, including its current state (queued, dialing, in_progress, completed, failed, canceled), attempts, and timestamps.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		callID := args[0]

		userID := viper.GetString("user")
		if userID == "" {
			cmd.Println("User ID not found. Please set it using the --user flag or the DAYBELL_USER environment variable")
			return
		}

		client := NewClient(viper.GetString("url"), userID)
		job, err := client.GetCallJob(callID)
		if err != nil {
			cmd.Printf("Failed to get call: %v\n", err)
			return
		}

		printCallStatus(cmd, *job)
	},
}

func printCallStatus(cmd *cobra.Command, job api.CallJobResponse) {
	icon := statusIcon(job.Status)
	cmd.Printf("%s %sCall Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s            %s\n", colorDim, colorReset, job.ID)
	cmd.Printf("%sStatus:%s        %s\n", colorDim, colorReset, colorizeStatus(job.Status))
	cmd.Printf("%sAttempts:%s      %d\n", colorDim, colorReset, job.Attempts)

	if job.ExternalCallID != nil {
		cmd.Printf("%sProvider Ref:%s  %s\n", colorDim, colorReset, *job.ExternalCallID)
	}

	if job.Error != nil {
		cmd.Printf("%sError:%s         %s%s%s\n", colorDim, colorReset, colorRed, *job.Error, colorReset)
	}

	cmd.Printf("%sScheduled:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&job.ScheduledFor))
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "completed":
		return colorGreen + "✓" + colorReset
	case "failed", "canceled":
		return colorRed + "✗" + colorReset
	case "dialing", "in_progress":
		return colorYellow + "⏳" + colorReset
	case "queued":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "completed":
		return icon + " " + colorGreen + status + colorReset
	case "failed", "canceled":
		return icon + " " + colorRed + status + colorReset
	case "dialing", "in_progress":
		return icon + " " + colorYellow + status + colorReset
	case "queued":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	if t.After(time.Now()) {
		return fmt.Sprintf("%s %s(in %s)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relativeTime(*t), colorReset)
	}
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relativeTime(*t), colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)
	if duration < 0 {
		duration = -duration
	}

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
