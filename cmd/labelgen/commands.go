package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/shiplabel/internal/address"
	"github.com/JonMunkholm/shiplabel/internal/core"
	"github.com/JonMunkholm/shiplabel/internal/label"
)

// stdio is the path that selects stdin or stdout.
const stdio = "-"

type convertOptions struct {
	in       string
	out      string
	profile  string
	date     string
	cityScan string
	workers  int
}

func createConvertCmd() *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a remark CSV into a USPS label CSV",
		Long: `Read a CSV with a remark column (发货备注, Remarks, ...) and a Handle column,
extract an address from every remark and write the 57-column USPS label CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.in, "in", "", "input remark CSV (- for stdin)")
	cmd.Flags().StringVar(&opts.out, "out", label.DefaultFileName, "output label CSV (- for stdout)")
	cmd.Flags().StringVar(&opts.profile, "profile", os.Getenv("LABEL_PROFILE"), "YAML label profile (default: built-in)")
	cmd.Flags().StringVar(&opts.date, "date", "", "shipping date as YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&opts.cityScan, "city-scan", envOr("LABEL_CITY_SCAN", "reverse"), "city/state/ZIP search direction: reverse or forward")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "parallel extraction workers")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func runConvert(cmd *cobra.Command, opts convertOptions) error {
	profile, err := loadProfile(opts.profile)
	if err != nil {
		return err
	}

	scan, err := address.ParseScanDirection(opts.cityScan)
	if err != nil {
		return err
	}

	clock := time.Now
	if opts.date != "" {
		shipDate, err := time.ParseInLocation(label.ShipDateLayout, opts.date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", opts.date)
		}
		begin := time.Now()
		clock = func() time.Time { return shipDate.Add(time.Since(begin)) }
	}

	in, name, size, err := openInput(cmd, opts.in)
	if err != nil {
		return err
	}
	defer in.Close()

	svc := core.NewService(core.Options{
		Extractor: address.New(address.WithCityScan(scan)),
		Profile:   profile,
		Workers:   opts.workers,
		MaxRecent: 1,
		Now:       clock,
	})
	defer func() {
		if err := svc.Shutdown(cmd.Context()); err != nil {
			slog.Warn("shutdown", "error", err)
		}
	}()

	res, err := svc.Convert(cmd.Context(), name, in, size)
	if err != nil {
		return err
	}

	if err := writeTable(cmd, opts.out, res.Table); err != nil {
		return err
	}

	dest := opts.out
	if dest == stdio {
		dest = "stdout"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s (%d with warnings, %d blank rows skipped)\n",
		res.Rows, dest, res.Warnings, res.BlankRows)
	return nil
}

func createParseCmd() *cobra.Command {
	var handle, cityScan string

	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Extract one remark and print it as JSON",
		Long:  `Extract an address from a single remark given as an argument or on stdin.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scan, err := address.ParseScanDirection(cityScan)
			if err != nil {
				return err
			}

			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			parsed := address.New(address.WithCityScan(scan)).Extract(text, handle)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(parsed)
		},
	}

	cmd.Flags().StringVar(&handle, "handle", "", "customer handle used when no name is found")
	cmd.Flags().StringVar(&cityScan, "city-scan", envOr("LABEL_CITY_SCAN", "reverse"), "city/state/ZIP search direction: reverse or forward")

	return cmd
}

func createTemplateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the empty USPS label template CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTable(cmd, out, label.Template())
		},
	}

	cmd.Flags().StringVar(&out, "out", stdio, "output CSV (- for stdout)")

	return cmd
}

func loadProfile(path string) (label.Profile, error) {
	if path == "" {
		return label.DefaultProfile(), nil
	}
	p, err := label.LoadProfile(path)
	if err != nil {
		return label.Profile{}, err
	}
	slog.Info("label profile loaded", "path", path)
	return p, nil
}

// openInput opens path, or stdin for "-", and reports its name and size.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, string, int64, error) {
	if path == stdio {
		return io.NopCloser(cmd.InOrStdin()), "stdin", 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", 0, fmt.Errorf("open input: %w", err)
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return f, filepath.Base(path), size, nil
}

// writeTable writes t as CSV to path, or stdout for "-".
func writeTable(cmd *cobra.Command, path string, t *label.Table) error {
	if path == stdio {
		return t.WriteCSV(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
