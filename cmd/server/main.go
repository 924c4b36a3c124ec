package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const serviceName = "property-service"

var rootCmd = &cobra.Command{
	Use:          serviceName,
	Short:        "Property listings API with image storage",
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if err := godotenv.Load(); err != nil {
			fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
		}
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, ensureIndexesCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
