package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"daybell/pkg/api"
)

var entriesLimit int

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List recent diary entries",
	Long:  `List the most recent diary entries extracted from check-in calls, newest first.`,
	Run: func(cmd *cobra.Command, args []string) {
		userID := viper.GetString("user")
		if userID == "" {
			cmd.Println("User ID not found. Please set it using the --user flag or the DAYBELL_USER environment variable")
			return
		}

		client := NewClient(viper.GetString("url"), userID)
		entries, err := client.ListEntries(entriesLimit)
		if err != nil {
			cmd.Printf("Failed to list entries: %v\n", err)
			return
		}

		if len(entries) == 0 {
			cmd.Println("No entries yet.")
			return
		}

		for i, entry := range entries {
			if i > 0 {
				cmd.Println()
			}
			printEntry(cmd, entry)
		}
	},
}

func printEntry(cmd *cobra.Command, e api.DiaryEntryResponse) {
	marker := ""
	if e.Anniversary {
		marker = " " + colorYellow + "★" + colorReset
	}
	cmd.Printf("%s%s%s%s  %s%s%s\n", colorBold, e.Title, colorReset, marker,
		colorDim, e.HappenedAt.Format("Mon, 02 Jan 2006"), colorReset)
	cmd.Printf("  %s\n", e.Summary)
	cmd.Printf("  %smood:%s %s  %senergy:%s %s\n", colorDim, colorReset, moodColor(e.Mood),
		colorDim, colorReset, e.Energy)
	if len(e.People) > 0 {
		cmd.Printf("  %swith:%s %s\n", colorDim, colorReset, strings.Join(e.People, ", "))
	}
	if len(e.Tags) > 0 {
		cmd.Printf("  %stags:%s %s\n", colorDim, colorReset, strings.Join(e.Tags, ", "))
	}
	cmd.Printf("  %sid:%s %s\n", colorDim, colorReset, e.ID)
}

func moodColor(mood string) string {
	switch mood {
	case "great", "good":
		return colorGreen + mood + colorReset
	case "low", "awful":
		return colorRed + mood + colorReset
	default:
		return mood
	}
}

func init() {
	entriesCmd.Flags().IntVar(&entriesLimit, "limit", 20, "Maximum number of entries to list")
	rootCmd.AddCommand(entriesCmd)
}
