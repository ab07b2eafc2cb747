package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mrmr/internal/pipeline"
	"github.com/ajitpratap0/mrmr/pkg/config"
	"github.com/ajitpratap0/mrmr/pkg/json"
	"github.com/ajitpratap0/mrmr/pkg/logger"
	"github.com/ajitpratap0/mrmr/pkg/storage"
)

func newInspectCommand(stdout io.Writer) *cobra.Command {
	var opts pipeline.InspectOptions
	var storageCfg config.StorageConfig
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Validate a binary dataset and summarize its columns",
		Long: `Read a binary dataset back, check that its length matches its header and
count the distinct codes in each column. With --dictionary the sidecar is
checked against the dataset checksum and dimensions.

Example:
  mrmr-reader inspect out.mrmr.zst --dictionary out.json --head 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Get()
			stager := storage.NewStager(storageCfg, log)
			defer stager.Close()

			report, err := pipeline.Inspect(cmd.Context(), stager, args[0], opts, log)
			if err != nil {
				return err
			}
			if asJSON {
				return json.MarshalToWriter(stdout, report)
			}
			return printReport(stdout, report)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Compression, "compress", "", "Compression of the dataset (default: from dictionary, else the file suffix)")
	flags.StringVar(&opts.ByteOrder, "byte-order", "", "Header byte order (default: from dictionary, else native)")
	flags.StringVar(&opts.Manifest, "dictionary", "", "JSON sidecar written by the conversion")
	flags.StringVar(&storageCfg.Region, "region", "", "AWS region for s3:// locations")
	flags.StringVar(&storageCfg.CredentialsFile, "credentials", "", "Google credentials file for gs:// locations")
	flags.StringVar(&storageCfg.TempDir, "temp-dir", "", "Directory for staging remote files")
	flags.IntVar(&opts.Head, "head", 0, "Print the codes of the first N samples")
	flags.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printReport(w io.Writer, r *pipeline.InspectReport) error {
	fmt.Fprintf(w, "location:    %s\n", r.Location)
	fmt.Fprintf(w, "samples:     %d\n", r.Header.Samples)
	fmt.Fprintf(w, "features:    %d\n", r.Header.Features)
	fmt.Fprintf(w, "size:        %d bytes\n", r.Size)
	fmt.Fprintf(w, "compression: %s\n", r.Compression)
	fmt.Fprintf(w, "xxh64:       %s\n", r.Checksum)
	if r.Verified {
		fmt.Fprintln(w, "dictionary:  verified")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tDISTINCT")
	for i, n := range r.Distinct {
		fmt.Fprintf(tw, "%d\t%d\n", i, n)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Rows) > 0 {
		fmt.Fprintln(w)
	}
	for i, row := range r.Rows {
		codes := make([]string, len(row))
		for j, c := range row {
			codes[j] = strconv.Itoa(c)
		}
		fmt.Fprintf(w, "sample %d: %s\n", i, strings.Join(codes, " "))
	}
	return nil
}
