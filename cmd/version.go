// =============================================================================
// EPC QR Code Generator - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   epcqr version
//
// OUTPUT:
//   EPC QR Code Generator
//   Version:         1.0.0
//   Build Date:      2026-10-18
//   Payload Version: 002 (001 when a BIC is given)
//   Go Version:      go1.24.0
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X 'github.com/ginjaninja78/epc-qr-code-generator/cmd.Version=1.0.0'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "EPC QR Code Generator")
		fmt.Fprintf(out, "Version:         %s\n", Version)
		fmt.Fprintf(out, "Build Date:      %s\n", BuildDate)
		fmt.Fprintln(out, "Payload Version: 002 (001 when a BIC is given)")
		fmt.Fprintf(out, "Go Version:      %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
