package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"divdataset/adapters/arff"
	"divdataset/adapters/cache"
	"divdataset/domain/core"
	"divdataset/domain/dataset"
	"divdataset/internal/analysis"
	"divdataset/internal/errors"
	"divdataset/internal/render"
	"divdataset/internal/session"
	"divdataset/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, column string, panels []render.Panel) (string, error) {
	args := m.Called(ctx, column, panels)
	return args.String(0), args.Error(1)
}

func newService(renderer PlotRenderer) *DatasetService {
	manager := session.NewManager(cache.NewMemoryCache(time.Minute), time.Hour)
	return NewDatasetService(manager, renderer, nil)
}

func upload(t *testing.T, svc *DatasetService, content string) *session.Session {
	t.Helper()
	sess, err := svc.Upload(context.Background(), UploadRequest{Filename: "kdd.arff", Content: []byte(content)})
	require.NoError(t, err)
	return sess
}

func TestUploadProfilesAndStores(t *testing.T) {
	svc := newService(nil)
	sess := upload(t, svc, testkit.SmallARFF)

	assert.Equal(t, 10, sess.DatasetInfo.TotalRecords)
	assert.Equal(t, 3, sess.DatasetInfo.ColumnsCount)

	stored, err := svc.Session(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, testkit.SmallARFF, stored.FileContent)
	assert.Equal(t, "kdd.arff", stored.Filename)
}

func TestUploadRejectsOtherExtensions(t *testing.T) {
	svc := newService(nil)

	_, err := svc.Upload(context.Background(), UploadRequest{Filename: "kdd.csv", Content: []byte("not even parsed")})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestIsARFF(t *testing.T) {
	assert.True(t, IsARFF("KDDTrain+.arff"))
	assert.False(t, IsARFF("KDDTrain+.ARFF"))
	assert.False(t, IsARFF("kdd.arff.csv"))
	assert.False(t, IsARFF("arff"))
}

func TestUploadParseFailure(t *testing.T) {
	svc := newService(nil)

	_, err := svc.Upload(context.Background(), UploadRequest{Filename: "bad.arff", Content: []byte("@relation r\n@data\n")})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeParseError))
	assert.True(t, strings.HasPrefix(err.Error(), "Error processing dataset: error loading dataset"))
}

func TestSampleLines(t *testing.T) {
	cases := []struct {
		lines int
		want  int
	}{
		{1, 1}, {4, 1}, {5, 1}, {10, 2}, {99, 19}, {100, 20},
	}
	for _, tc := range cases {
		parts := make([]string, tc.lines)
		for i := range parts {
			parts[i] = "x"
		}
		got := SampleLines(strings.Join(parts, "\n"))
		assert.Len(t, strings.Split(got, "\n"), tc.want, "%d lines", tc.lines)
	}
}

func TestUploadWithSample(t *testing.T) {
	svc := newService(nil)
	text := testkit.GenerateKDD(500, 1)
	lines := strings.Split(text, "\n")

	sess, err := svc.Upload(context.Background(), UploadRequest{Filename: "kdd.arff", Content: []byte(text), UseSample: true})
	require.NoError(t, err)

	kept := strings.Join(lines[:len(lines)/5], "\n")
	assert.Equal(t, kept, sess.FileContent)
	assert.Less(t, sess.DatasetInfo.TotalRecords, 500)
}

func TestSplitAttachesSummary(t *testing.T) {
	svc := newService(nil)
	sess := upload(t, svc, testkit.SmallARFF)

	outcome, err := svc.Split(context.Background(), sess, dataset.DefaultSplitParams())
	require.NoError(t, err)

	assert.Equal(t, dataset.SplitSizes{Train: 6, Validation: 2, Test: 2, Total: 10}, outcome.Sizes)
	assert.Nil(t, outcome.Distributions)

	stored, err := svc.Session(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateActiveWithSplit, stored.State())
	assert.Equal(t, outcome.Sizes, stored.LastSplit.Sizes)
}

func TestSplitStratifiedRendersPlot(t *testing.T) {
	renderer := new(MockRenderer)
	renderer.On("Render", mock.Anything, "class", mock.MatchedBy(func(p []render.Panel) bool { return len(p) == 4 })).
		Return("cGxvdA==", nil)
	svc := newService(renderer)
	sess := upload(t, svc, testkit.SmallARFF)

	params := dataset.DefaultSplitParams()
	params.Stratify = "class"
	outcome, err := svc.Split(context.Background(), sess, params)
	require.NoError(t, err)

	require.NotNil(t, outcome.Distributions)
	assert.Equal(t, map[string]int{"normal": 5, "anomaly": 5}, outcome.Distributions.Original)
	require.NotNil(t, outcome.Distributions.Plot)
	assert.Equal(t, "cGxvdA==", *outcome.Distributions.Plot)
	renderer.AssertExpectations(t)
}

func TestSplitRenderFailureIsSwallowed(t *testing.T) {
	renderer := new(MockRenderer)
	renderer.On("Render", mock.Anything, "class", mock.Anything).
		Return("", errors.RenderError("backend exploded", nil))
	svc := newService(renderer)
	sess := upload(t, svc, testkit.SmallARFF)

	params := dataset.DefaultSplitParams()
	params.Stratify = "class"
	outcome, err := svc.Split(context.Background(), sess, params)
	require.NoError(t, err)

	require.NotNil(t, outcome.Distributions)
	assert.Nil(t, outcome.Distributions.Plot)
}

func TestSplitUnknownStratifyHasNoDistributions(t *testing.T) {
	renderer := new(MockRenderer)
	svc := newService(renderer)
	sess := upload(t, svc, testkit.SmallARFF)

	params := dataset.DefaultSplitParams()
	params.Stratify = "protocol_type"
	outcome, err := svc.Split(context.Background(), sess, params)
	require.NoError(t, err)

	assert.Nil(t, outcome.Distributions)
	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
}

func TestColumnsAndClear(t *testing.T) {
	svc := newService(nil)
	sess := upload(t, svc, testkit.SmallARFF)
	ctx := context.Background()

	cols, err := svc.Columns(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"class"}, cols.Categorical)
	assert.Equal(t, []string{"duration", "src_bytes"}, cols.Numeric)
	assert.Equal(t, []string{"duration", "src_bytes", "class"}, cols.All)

	require.NoError(t, svc.Clear(ctx, sess.ID))
	require.NoError(t, svc.Clear(ctx, sess.ID))
	_, err = svc.Columns(ctx, sess.ID)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestExport(t *testing.T) {
	svc := newService(nil)
	sess := upload(t, svc, testkit.GenerateKDD(120, 4))
	ctx := context.Background()

	var buf bytes.Buffer
	err := svc.Export(ctx, sess.ID, &buf)
	assert.True(t, errors.HasCode(err, errors.CodeConflict))

	outcome, err := svc.Split(ctx, sess, dataset.DefaultSplitParams())
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, svc.Export(ctx, sess.ID, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	for sheet, size := range map[string]int{
		"train":      outcome.Sizes.Train,
		"validation": outcome.Sizes.Validation,
		"test":       outcome.Sizes.Test,
	} {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		assert.Len(t, rows, size+1, sheet)
	}

	err = svc.Export(ctx, core.SessionID("unknown"), &buf)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestNewSplitOutcome(t *testing.T) {
	table, err := arff.LoadString(testkit.SmallARFF)
	require.NoError(t, err)

	params := dataset.DefaultSplitParams()
	params.Stratify = "class"
	result, err := analysis.NewDataPartitioner().Split(table, params)
	require.NoError(t, err)

	outcome := NewSplitOutcome(params, table, result)
	assert.Equal(t, result.Sizes(), outcome.Sizes)
	assert.Equal(t, params, outcome.Parameters)
	require.NotNil(t, outcome.Distributions)
	assert.Equal(t, map[string]int{"normal": 5, "anomaly": 5}, outcome.Distributions.Original)
	assert.Equal(t, map[string]int{"normal": 1, "anomaly": 1}, outcome.Distributions.Test)
	assert.Nil(t, outcome.Distributions.Plot)

	panels := ComparisonPanels(table, result)
	require.Len(t, panels, 4)
	assert.Equal(t, "Original", panels[0].Title)
	assert.Same(t, result.Test, panels[3].Table)

	sheets := PartitionSheets(result)
	assert.Equal(t, "validation", sheets[1].Name)
	assert.Same(t, result.Validation, sheets[1].Table)

	params.Stratify = ""
	plain, err := analysis.NewDataPartitioner().Split(table, params)
	require.NoError(t, err)
	assert.Nil(t, NewSplitOutcome(params, table, plain).Distributions)
}

func TestSplitRejectsOutOfRangeParams(t *testing.T) {
	svc := newService(nil)
	sess := upload(t, svc, testkit.SmallARFF)

	params := dataset.DefaultSplitParams()
	params.ValSize = 0.9
	_, err := svc.Split(context.Background(), sess, params)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
	assert.Contains(t, err.Error(), "val_size")
}
