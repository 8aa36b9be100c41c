// =============================================================================
// EPC QR Code Generator - Main Entry Point
// =============================================================================
//
// epcqr builds EPC069-12 payloads for SEPA credit transfers and renders them
// as QR code images.
//
// USAGE:
//   epcqr generate NAME ACCOUNT  - Write a QR code image for one payment
//   epcqr payload NAME ACCOUNT   - Print the payload for one payment
//   epcqr batch                  - Process all CSV/XLSX files in the input directory
//   epcqr validate               - Validate configuration files without processing
//   epcqr version                - Display the application version
//
// ARCHITECTURE:
//   - cmd/                  : CLI command definitions (Cobra)
//   - internal/epc          : Payment record, validation and payload serialization
//   - internal/qrrender     : QR matrix rendering
//   - internal/imagewriter  : PNG, JPEG and QOI output
//   - internal/converter    : Batch pipeline and transformation rules
//   - internal/...          : Config, logging, CSV/XLSX parsing, row validation
//   - pkg/utils             : File discovery, archival, naming and reports
//   - sources/              : Per-source YAML configurations
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/epc-qr-code-generator/cmd"
)

func main() {
	cmd.Execute()
}
