package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬  ┬┌┬┐┌─┐┌─┐┌─┐┌┬┐┌─┐
  └─┐│  │ ││├┤ │ ┬├─┤ │ ├┤
  └─┘┴─┘┴─┴┘└─┘└─┘┴ ┴ ┴ └─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "slidegate",
		Short: "Web front-end for the document-to-presentation service",
		Long: `SlideGate is the thin web front-end of a file-upload-and-convert
service. It serves the upload page, validates and spools incoming
documents, relays them to the conversion backend, and stages the
generated presentation for download.

The backend is an opaque HTTP collaborator; SlideGate's job is to be
a defensive, always-JSON face in front of it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the SlideGate ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}
