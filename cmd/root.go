package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "calltracker",
	Short: "Track and verify financial calls made on social media",
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func Execute() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}
	return rootCmd.Execute()
}
