//go:build linux

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smazurov/v4l2codecs/internal/logging"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// devicesReport is the document written by the devices command.
type devicesReport struct {
	Decoders []v4l2.DecoderInfo `json:"decoders" toml:"decoder" yaml:"decoders"`
}

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var outputFile, format string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List stateless decoders",
		Long: `Scans /sys/class/video4linux for memory-to-memory decoders that accept a stateless ` +
			`compressed format and prints them, with their media controller node, as TOML, YAML or JSON.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			logger := logging.GetLogger("main")

			decoders, err := v4l2.FindDecoders()
			if err != nil {
				logger.Error("Failed to scan decoders", "error", err)
				os.Exit(1)
			}
			if len(decoders) == 0 {
				logger.Warn("No stateless decoders found")
			}

			out := io.Writer(os.Stdout)
			if outputFile != "" {
				f, createErr := os.Create(outputFile)
				if createErr != nil {
					logger.Error("Failed to create output file", "path", outputFile, "error", createErr)
					os.Exit(1)
				}
				defer f.Close()
				out = f
			}

			if writeErr := writeDevices(out, decoders, format); writeErr != nil {
				logger.Error("Failed to write device list", "error", writeErr)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the device list to a file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "Output format (toml, yaml, json)")
	return cmd
}

func writeDevices(w io.Writer, decoders []v4l2.DecoderInfo, format string) error {
	if decoders == nil {
		decoders = []v4l2.DecoderInfo{}
	}
	report := devicesReport{Decoders: decoders}

	var err error
	switch format {
	case "", "toml":
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		err = enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(report)
		if err == nil {
			err = enc.Close()
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode devices: %w", err)
	}
	return nil
}
