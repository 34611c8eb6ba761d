package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"divdataset/adapters/arff"
	"divdataset/adapters/excel"
	"divdataset/app"
	"divdataset/domain/dataset"
	"divdataset/internal/analysis"
	"divdataset/internal/config"
	"divdataset/internal/profiling"
	"divdataset/internal/render"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "divdataset",
		Short:         "Profile and split NSL-KDD ARFF datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newProfileCmd(),
		newSplitCmd(),
	)
	return rootCmd
}

func newProfileCmd() *cobra.Command {
	var sample bool

	cmd := &cobra.Command{
		Use:   "profile [file.arff]",
		Short: "Print the dataset profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadFile(args[0], sample)
			if err != nil {
				return err
			}
			info := profiling.NewDataProfiler().Profile(table)
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}

	cmd.Flags().BoolVar(&sample, "sample", false, "Keep only the first fifth of the file's lines")
	return cmd
}

type splitOptions struct {
	params     dataset.SplitParams
	noShuffle  bool
	sample     bool
	exportPath string
	plotPath   string
}

func newSplitCmd() *cobra.Command {
	opts := splitOptions{params: dataset.DefaultSplitParams()}

	cmd := &cobra.Command{
		Use:   "split [file.arff]",
		Short: "Split a dataset into train/validation/test",
		Long: `Split a dataset into train/validation/test partitions and print the sizes.

Example: divdataset split KDDTrain+.arff --stratify class --export split.xlsx --plot class.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.params.Shuffle = !opts.noShuffle
			return runSplit(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().Float64Var(&opts.params.TestSize, "test-size", dataset.DefaultTestSize, "Fraction held out from training (0.1-0.5)")
	cmd.Flags().Float64Var(&opts.params.ValSize, "val-size", dataset.DefaultValSize, "Fraction of the holdout used for validation (0.1-0.5)")
	cmd.Flags().Int64Var(&opts.params.RandomState, "seed", dataset.DefaultRandomState, "Random seed for deterministic splits")
	cmd.Flags().BoolVar(&opts.noShuffle, "no-shuffle", false, "Keep file order instead of shuffling")
	cmd.Flags().StringVar(&opts.params.Stratify, "stratify", "", "Column to stratify on")
	cmd.Flags().BoolVar(&opts.sample, "sample", false, "Keep only the first fifth of the file's lines")
	cmd.Flags().StringVar(&opts.exportPath, "export", "", "Write the partitions to this XLSX file")
	cmd.Flags().StringVar(&opts.plotPath, "plot", "", "Write the stratify column distribution to this PNG file")

	return cmd
}

func runSplit(ctx context.Context, out io.Writer, path string, opts splitOptions) error {
	if err := opts.params.Validate(); err != nil {
		return err
	}

	table, err := loadFile(path, opts.sample)
	if err != nil {
		return err
	}

	result, err := analysis.NewDataPartitioner().Split(table, opts.params)
	if err != nil {
		return err
	}

	report := app.NewSplitOutcome(opts.params, table, result)

	if opts.exportPath != "" {
		if err := exportWorkbook(opts.exportPath, result); err != nil {
			return err
		}
	}

	if opts.plotPath != "" {
		if !result.Stratified {
			return fmt.Errorf("--plot requires --stratify naming an existing column")
		}
		if err := writePlot(ctx, opts.plotPath, opts.params.Stratify, table, result); err != nil {
			return err
		}
	}

	return writeJSON(out, report)
}

func loadFile(path string, sample bool) (*dataset.Table, error) {
	if !app.IsARFF(path) {
		return nil, fmt.Errorf("only .arff files are supported: %s", filepath.Base(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if sample {
		content = []byte(app.SampleLines(string(content)))
	}
	return arff.Load(content)
}

func exportWorkbook(path string, result *analysis.SplitResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	return excel.WriteWorkbook(f, app.PartitionSheets(result))
}

func writePlot(ctx context.Context, path, column string, table *dataset.Table, result *analysis.SplitResult) error {
	renderer := render.NewRenderer(config.Default().Render)
	encoded, err := renderer.Render(ctx, column, app.ComparisonPanels(table, result))
	if err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
