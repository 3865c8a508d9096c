package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "daybellctl",
	Short: "daybellctl is a command line tool for the daybell check-in service",
	Long: `daybellctl manages recurring check-in call schedules and inspects what
each call produced.

Daybell calls users at a time they pick on their own wall clock, extracts
diary entries from the conversation, and synthesizes a keepsake image for
each day.

Common workflows:

  Set a daily 9am schedule:
    daybellctl schedule set --phone "+14155550101" --tz "America/New_York" --at 09:00 --cadence daily

  Weekday-only check-ins:
    daybellctl schedule set --phone "+14155550101" --tz "Europe/Berlin" --at 08:30 --cadence weekdays

  Turn check-ins off:
    daybellctl schedule off

  Inspect a call:
    daybellctl status <call-id>

  Read recent diary entries:
    daybellctl entries

Configuration:
  Set the API endpoint and identity via environment variables or a config file:
    DAYBELL_URL     API endpoint (default: http://localhost:7040)
    DAYBELL_USER    User ID the requests act as`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".daybellctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".daybellctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "DAYBELL_VARNAME"
	viper.SetEnvPrefix("DAYBELL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.daybellctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:7040", "Daybell API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("user", "u", "", "User ID to act as")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}
