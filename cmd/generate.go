// =============================================================================
// EPC QR Code Generator - Generate and Payload Commands
// =============================================================================
//
// COMMAND USAGE:
//   epcqr generate NAME ACCOUNT [flags]
//   epcqr payload  NAME ACCOUNT [flags]
//
// FIELD FLAGS (shared):
//   -b, --bic            : BIC of the beneficiary bank
//   -a, --amount         : Amount in euro, e.g. 12.50
//   -p, --purpose        : Purpose code, e.g. GDDS
//   -r, --reference      : Structured creditor reference (RF...)
//   -t, --text           : Unstructured remittance text
//   -i, --info           : Note to the payer
//   -c, --character-set  : Character set code, 1 (UTF-8) by default
//
// A flag that is given counts as present even when its value is empty, so
// `-p ""` is reported as an invalid purpose rather than silently dropped.
//
// GENERATE PIPELINE:
//   1. Build and validate the payment record
//   2. Serialize the payload and print it
//   3. Render the QR matrix
//   4. Write the image
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/epc"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/imagewriter"
	"github.com/ginjaninja78/epc-qr-code-generator/internal/qrrender"
	"github.com/ginjaninja78/epc-qr-code-generator/pkg/utils"
)

// =============================================================================
// FIELD FLAGS
// =============================================================================

// paymentFlags holds the optional payment fields of one command.
type paymentFlags struct {
	bic          string
	amount       string
	purpose      string
	reference    string
	text         string
	info         string
	characterSet string
}

func (f *paymentFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.bic, "bic", "b", "", "BIC of the beneficiary bank")
	flags.StringVarP(&f.amount, "amount", "a", "", "Amount in euro, e.g. 12.50")
	flags.StringVarP(&f.purpose, "purpose", "p", "", "Purpose code, e.g. GDDS")
	flags.StringVarP(&f.reference, "reference", "r", "", "Structured creditor reference")
	flags.StringVarP(&f.text, "text", "t", "", "Unstructured remittance text")
	flags.StringVarP(&f.info, "info", "i", "", "Beneficiary to originator information")
	flags.StringVarP(&f.characterSet, "character-set", "c", "", "Character set code (1 = UTF-8)")
}

// fields returns the record input for NAME and ACCOUNT. Only flags that were
// given on the command line are set.
func (f *paymentFlags) fields(cmd *cobra.Command, name, account string) epc.Fields {
	given := func(flag string, value *string) *string {
		if cmd.Flags().Changed(flag) {
			s := *value
			return &s
		}
		return nil
	}

	return epc.Fields{
		Name:         name,
		Account:      account,
		BIC:          given("bic", &f.bic),
		Amount:       given("amount", &f.amount),
		Purpose:      given("purpose", &f.purpose),
		Reference:    given("reference", &f.reference),
		Text:         given("text", &f.text),
		Info:         given("info", &f.info),
		CharacterSet: given("character-set", &f.characterSet),
	}
}

// remittanceText is the reference or text used in derived file names.
func (f *paymentFlags) remittanceText(cmd *cobra.Command) string {
	if cmd.Flags().Changed("reference") {
		return f.reference
	}
	if cmd.Flags().Changed("text") {
		return f.text
	}
	return ""
}

// buildPayload builds, validates and serializes the payment.
func buildPayload(fields epc.Fields) ([]byte, error) {
	record, err := fields.Record()
	if err != nil {
		return nil, err
	}
	return epc.Serialize(record)
}

// =============================================================================
// GENERATE COMMAND
// =============================================================================

var (
	generateFlags paymentFlags
	outputPath    string
	imageFormat   string
)

var generateCmd = &cobra.Command{
	Use:   "generate NAME ACCOUNT",
	Short: "Generate an EPC QR code image for one payment",
	Long: `Generate validates the payment, prints the payload and writes the QR code
image.

Without --output the image is written to the current directory under a name
built from file_name_format, by default
  epc-[<bic>-]<account>[-<reference or text>]-qr-code.<ext>

The image format is taken from --image-format, then from the extension of
--output, then from image_format in the configuration.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateFlags.register(generateCmd)

	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output image path")
	generateCmd.Flags().StringVar(&imageFormat, "image-format", "", "Image format: png, jpeg or qoi")
}

func runGenerate(cmd *cobra.Command, name, account string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	log, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	payload, err := buildPayload(generateFlags.fields(cmd, name, account))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(payload))

	matrix, err := qrrender.New().Render(payload)
	if err != nil {
		return err
	}

	format, err := resolveFormat(cfg, imageFormat, outputPath)
	if err != nil {
		return err
	}

	path := outputPath
	if path == "" {
		path = utils.GenerateOutputFileName(cfg.FileNameFormat, map[string]string{
			"derived": utils.DeriveFileName(generateFlags.bic, account, generateFlags.remittanceText(cmd)),
			"account": account,
			"bic":     generateFlags.bic,
		}, format.Extension())
	}

	if err := imagewriter.WriteFile(matrix, &format, path, imageOptions(cfg)); err != nil {
		return err
	}

	log.Infof("QR code written to %s (%s, %d modules)", filepath.Clean(path), format, matrix.Size())
	return nil
}

// resolveFormat picks the image format: an explicit name first, then the
// extension of an explicit output path, then the configured default.
func resolveFormat(cfg *config.MainConfig, name, path string) (imagewriter.Format, error) {
	switch {
	case name != "":
		return imagewriter.ParseFormat(name)
	case path != "":
		return imagewriter.FormatFromPath(path), nil
	default:
		return imagewriter.ParseFormat(cfg.ImageFormat)
	}
}

// imageOptions maps the configuration onto rasterizer options.
func imageOptions(cfg *config.MainConfig) imagewriter.Options {
	opts := imagewriter.DefaultOptions()
	opts.ModuleSize = cfg.ModuleSize
	opts.QuietZone = cfg.QuietZone
	opts.JPEGQuality = cfg.JPEGQuality
	return opts
}

// =============================================================================
// PAYLOAD COMMAND
// =============================================================================

var payloadFlags paymentFlags

var payloadCmd = &cobra.Command{
	Use:   "payload NAME ACCOUNT",
	Short: "Print the EPC payload for one payment",
	Long: `Payload validates the payment and prints the serialized payload text without
rendering an image.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := buildPayload(payloadFlags.fields(cmd, args[0], args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(payloadCmd)
	payloadFlags.register(payloadCmd)
}
