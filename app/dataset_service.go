package app

import (
	"context"
	"io"
	"strings"
	"time"

	"divdataset/adapters/arff"
	"divdataset/adapters/excel"
	"divdataset/domain/core"
	"divdataset/domain/dataset"
	"divdataset/internal"
	"divdataset/internal/analysis"
	"divdataset/internal/errors"
	"divdataset/internal/profiling"
	"divdataset/internal/render"
	"divdataset/internal/session"
)

// SampleDivisor keeps 1/SampleDivisor of the lines of a sampled upload
const SampleDivisor = 5

// PlotRenderer draws a column distribution for several tables
type PlotRenderer interface {
	Render(ctx context.Context, column string, panels []render.Panel) (string, error)
}

// DatasetService orchestrates upload, profiling, splitting and export for sessions
type DatasetService struct {
	sessions    *session.Manager
	profiler    *profiling.DataProfiler
	partitioner *analysis.DataPartitioner
	renderer    PlotRenderer
	logger      *internal.Logger
}

// UploadRequest is one uploaded ARFF file
type UploadRequest struct {
	Filename  string
	Content   []byte
	UseSample bool
}

// SplitOutcome is the response body of a split
type SplitOutcome struct {
	Sizes         dataset.SplitSizes       `json:"sizes"`
	Percentages   dataset.SplitPercentages `json:"percentages"`
	Parameters    dataset.SplitParams      `json:"parameters"`
	Distributions *Distributions           `json:"distributions,omitempty"`
}

// Distributions compares the stratify column across partitions
type Distributions struct {
	Original    map[string]int             `json:"original"`
	Train       map[string]int             `json:"train"`
	Validation  map[string]int             `json:"validation"`
	Test        map[string]int             `json:"test"`
	Homogeneity analysis.HomogeneityResult `json:"homogeneity"`
	// Plot is a base64 PNG, nil when rendering is disabled or failed
	Plot *string `json:"plot"`
}

// Columns lists the columns of a session's dataset by kind
type Columns struct {
	Categorical []string `json:"categorical_columns"`
	Numeric     []string `json:"numeric_columns"`
	All         []string `json:"all_columns"`
}

// NewDatasetService creates the service. renderer may be nil to disable plots.
func NewDatasetService(sessions *session.Manager, renderer PlotRenderer, logger *internal.Logger) *DatasetService {
	if logger == nil {
		logger = internal.Discard()
	}
	return &DatasetService{
		sessions:    sessions,
		profiler:    profiling.NewDataProfiler(),
		partitioner: analysis.NewDataPartitioner(),
		renderer:    renderer,
		logger:      logger,
	}
}

// IsARFF reports whether a filename ends in .arff. The match is case-sensitive.
func IsARFF(filename string) bool {
	return strings.HasSuffix(filename, ".arff")
}

// SampleLines keeps the first max(1, N/SampleDivisor) of the N newline-separated lines
func SampleLines(text string) string {
	lines := strings.Split(text, "\n")
	n := len(lines) / SampleDivisor
	if n < 1 {
		n = 1
	}
	return strings.Join(lines[:n], "\n")
}

// Upload parses and profiles a file and stores it in a new session
func (s *DatasetService) Upload(ctx context.Context, req UploadRequest) (*session.Session, error) {
	if !IsARFF(req.Filename) {
		return nil, errors.InvalidInput("Only .arff files are allowed")
	}

	content := req.Content
	if req.UseSample {
		content = []byte(SampleLines(string(content)))
	}

	start := time.Now()
	table, err := arff.Load(content)
	if err != nil {
		return nil, errors.ParseError("Error processing dataset", err)
	}
	info := s.profiler.Profile(table)

	sess, err := s.sessions.Create(ctx, req.Filename, string(content), info)
	if err != nil {
		return nil, errors.Wrap(err, "Error processing dataset")
	}

	s.logger.Info("session %s: loaded %s (%d rows, %d columns) in %s",
		sess.ID, req.Filename, info.TotalRecords, info.ColumnsCount, time.Since(start).Round(time.Millisecond))
	return sess, nil
}

// Session returns the stored session
func (s *DatasetService) Session(ctx context.Context, id core.SessionID) (*session.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Columns returns the column lists of a session's dataset
func (s *DatasetService) Columns(ctx context.Context, id core.SessionID) (*Columns, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	info := sess.DatasetInfo
	return &Columns{
		Categorical: nonNil(info.CategoricalColumns),
		Numeric:     nonNil(info.NumericColumns),
		All:         nonNil(info.Columns),
	}, nil
}

// Split rebuilds the session's table, splits it and records the split on the session
func (s *DatasetService) Split(ctx context.Context, sess *session.Session, params dataset.SplitParams) (*SplitOutcome, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	table, result, err := s.split(sess, params)
	if err != nil {
		return nil, err
	}

	outcome := NewSplitOutcome(params, table, result)
	if outcome.Distributions != nil {
		s.attachPlot(ctx, params.Stratify, outcome.Distributions, table, result)
	}

	if err := s.sessions.AttachSplit(ctx, sess, params, outcome.Sizes); err != nil {
		return nil, err
	}

	s.logger.Info("session %s: split %d rows into %d/%d/%d (stratify=%q)",
		sess.ID, outcome.Sizes.Total, outcome.Sizes.Train, outcome.Sizes.Validation, outcome.Sizes.Test, params.Stratify)
	return outcome, nil
}

// Export reproduces the session's last split and writes it as an XLSX workbook
func (s *DatasetService) Export(ctx context.Context, id core.SessionID, w io.Writer) error {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.LastSplit == nil {
		return errors.Conflict("No split has been performed for this session")
	}

	_, result, err := s.split(sess, sess.LastSplit.Parameters)
	if err != nil {
		return err
	}

	if err := excel.WriteWorkbook(w, PartitionSheets(result)); err != nil {
		return errors.Wrap(err, "Error exporting dataset")
	}
	return nil
}

// Clear deletes a session; clearing an absent session succeeds
func (s *DatasetService) Clear(ctx context.Context, id core.SessionID) error {
	return s.sessions.Delete(ctx, id)
}

func (s *DatasetService) split(sess *session.Session, params dataset.SplitParams) (*dataset.Table, *analysis.SplitResult, error) {
	table, err := arff.LoadString(sess.FileContent)
	if err != nil {
		return nil, nil, errors.ParseError("Error splitting dataset", err)
	}
	result, err := s.partitioner.Split(table, params)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Error splitting dataset")
	}
	return table, result, nil
}

// attachPlot renders the comparison plot into d; a failure leaves Plot nil
func (s *DatasetService) attachPlot(ctx context.Context, column string, d *Distributions, table *dataset.Table, result *analysis.SplitResult) {
	if s.renderer == nil {
		return
	}
	plot, err := s.renderer.Render(ctx, column, ComparisonPanels(table, result))
	if err != nil {
		s.logger.Warn("plot for column %q not rendered: %v", column, err)
		return
	}
	d.Plot = &plot
}

// NewSplitOutcome reports a split. Distributions are filled only for a stratified split
// and never carry a plot.
func NewSplitOutcome(params dataset.SplitParams, table *dataset.Table, result *analysis.SplitResult) *SplitOutcome {
	outcome := &SplitOutcome{
		Sizes:       result.Sizes(),
		Percentages: result.Percentages(),
		Parameters:  params,
	}
	if !result.Stratified {
		return outcome
	}
	column := params.Stratify
	outcome.Distributions = &Distributions{
		Original:    analysis.ValueCounts(table, column),
		Train:       analysis.ValueCounts(result.Train, column),
		Validation:  analysis.ValueCounts(result.Validation, column),
		Test:        analysis.ValueCounts(result.Test, column),
		Homogeneity: analysis.Homogeneity(column, result.Train, result.Validation, result.Test),
	}
	return outcome
}

// ComparisonPanels lays out the source table next to its three partitions
func ComparisonPanels(table *dataset.Table, result *analysis.SplitResult) []render.Panel {
	return []render.Panel{
		{Title: "Original", Table: table},
		{Title: "Train", Table: result.Train},
		{Title: "Validation", Table: result.Validation},
		{Title: "Test", Table: result.Test},
	}
}

// PartitionSheets names one workbook sheet per partition
func PartitionSheets(result *analysis.SplitResult) []excel.Sheet {
	return []excel.Sheet{
		{Name: "train", Table: result.Train},
		{Name: "validation", Table: result.Validation},
		{Name: "test", Table: result.Test},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
