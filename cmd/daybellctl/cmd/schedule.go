package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"daybell/pkg/api"
)

var (
	schedulePhone   string
	scheduleTZ      string
	scheduleAt      string
	scheduleCadence string
	scheduleDays    []int
	scheduleName    string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the check-in schedule",
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace the check-in schedule",
	Long: `Create or replace the check-in schedule. The time of day is interpreted
in the given timezone, so a 09:00 schedule keeps firing at 9am local time
across daylight saving transitions.

Cadence is one of: daily, weekdays, weekends, custom. For custom, pass
--days with weekday numbers (0=Sunday .. 6=Saturday), e.g. --days 1,3,5.`,
	Run: func(cmd *cobra.Command, args []string) {
		userID := viper.GetString("user")
		if userID == "" {
			cmd.Println("User ID not found. Please set it using the --user flag or the DAYBELL_USER environment variable")
			return
		}

		client := NewClient(viper.GetString("url"), userID)
		schedule, err := client.UpsertSchedule(api.UpsertScheduleRequest{
			DisplayName: scheduleName,
			PhoneNumber: schedulePhone,
			Timezone:    scheduleTZ,
			TimeOfDay:   scheduleAt,
			Cadence:     scheduleCadence,
			CustomDays:  scheduleDays,
			Active:      true,
		})
		if err != nil {
			cmd.Printf("Failed to set schedule: %v\n", err)
			return
		}

		printSchedule(cmd, *schedule)
	},
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current check-in schedule",
	Run: func(cmd *cobra.Command, args []string) {
		userID := viper.GetString("user")
		if userID == "" {
			cmd.Println("User ID not found. Please set it using the --user flag or the DAYBELL_USER environment variable")
			return
		}

		client := NewClient(viper.GetString("url"), userID)
		schedule, err := client.GetSchedule()
		if err != nil {
			cmd.Printf("Failed to get schedule: %v\n", err)
			return
		}

		printSchedule(cmd, *schedule)
	},
}

var scheduleOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn check-in calls off",
	Run: func(cmd *cobra.Command, args []string) {
		userID := viper.GetString("user")
		if userID == "" {
			cmd.Println("User ID not found. Please set it using the --user flag or the DAYBELL_USER environment variable")
			return
		}

		client := NewClient(viper.GetString("url"), userID)
		if err := client.DeactivateSchedule(); err != nil {
			cmd.Printf("Failed to deactivate schedule: %v\n", err)
			return
		}

		cmd.Println("Check-ins turned off. Your diary entries are untouched.")
	},
}

func printSchedule(cmd *cobra.Command, s api.ScheduleResponse) {
	cmd.Printf("%sSchedule%s\n", colorBold, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sPhone:%s      %s\n", colorDim, colorReset, s.PhoneNumber)
	cmd.Printf("%sTimezone:%s   %s\n", colorDim, colorReset, s.Timezone)
	cmd.Printf("%sTime:%s       %s\n", colorDim, colorReset, s.TimeOfDay)
	cmd.Printf("%sCadence:%s    %s (%s)\n", colorDim, colorReset, s.Cadence, strings.Join(s.Weekdays, ", "))
	if s.Active {
		cmd.Printf("%sActive:%s     %syes%s\n", colorDim, colorReset, colorGreen, colorReset)
	} else {
		cmd.Printf("%sActive:%s     %sno%s\n", colorDim, colorReset, colorRed, colorReset)
	}
	cmd.Printf("%sNext call:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(s.NextRunAt))
}

func init() {
	scheduleSetCmd.Flags().StringVar(&schedulePhone, "phone", "", "Phone number in E.164 format, e.g. +14155550101")
	scheduleSetCmd.Flags().StringVar(&scheduleTZ, "tz", "", "IANA timezone, e.g. America/New_York")
	scheduleSetCmd.Flags().StringVar(&scheduleAt, "at", "09:00", "Local time of day, HH:MM")
	scheduleSetCmd.Flags().StringVar(&scheduleCadence, "cadence", "daily", "daily | weekdays | weekends | custom")
	scheduleSetCmd.Flags().IntSliceVar(&scheduleDays, "days", nil, "Weekdays for custom cadence (0=Sunday .. 6=Saturday)")
	scheduleSetCmd.Flags().StringVar(&scheduleName, "name", "", "Display name used when greeting you on calls")
	scheduleSetCmd.MarkFlagRequired("phone")
	scheduleSetCmd.MarkFlagRequired("tz")

	scheduleCmd.AddCommand(scheduleSetCmd)
	scheduleCmd.AddCommand(scheduleShowCmd)
	scheduleCmd.AddCommand(scheduleOffCmd)
	rootCmd.AddCommand(scheduleCmd)
}
