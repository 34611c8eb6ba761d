package profiling

import (
	"testing"

	"divdataset/adapters/arff"
	"divdataset/domain/dataset"
	"divdataset/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileSmallDataset(t *testing.T) {
	table, err := arff.LoadString(testkit.SmallARFF)
	require.NoError(t, err)

	info := NewDataProfiler().Profile(table)

	assert.Equal(t, 10, info.TotalRecords)
	assert.Equal(t, 3, info.ColumnsCount)
	assert.Equal(t, []string{"duration", "src_bytes", "class"}, info.Columns)
	assert.Equal(t, []string{"duration", "src_bytes"}, info.NumericColumns)
	assert.Equal(t, []string{"class"}, info.CategoricalColumns)
	assert.Equal(t, dataset.TypeFloat64, info.ColumnTypes["duration"])
	assert.Equal(t, dataset.TypeObject, info.ColumnTypes["class"])
	assert.GreaterOrEqual(t, info.MemoryUsageMB, 0.0)
}

func TestProfileColumnPartition(t *testing.T) {
	table, err := arff.LoadString(testkit.GenerateKDD(200, 3))
	require.NoError(t, err)

	info := NewDataProfiler().Profile(table)

	assert.Equal(t, info.ColumnsCount, len(info.NumericColumns)+len(info.CategoricalColumns))
	assert.Len(t, info.ColumnTypes, info.ColumnsCount)
	assert.Equal(t, dataset.TypeInt64, info.ColumnTypes["count"])
	for _, name := range info.NumericColumns {
		assert.True(t, IsNumericType(info.ColumnTypes[name]), name)
	}
	for _, name := range info.CategoricalColumns {
		assert.Equal(t, dataset.TypeObject, info.ColumnTypes[name], name)
	}
}

func TestIntegerColumnWidensWithMissing(t *testing.T) {
	text := "@relation r\n@attribute n integer\n@attribute m integer\n@data\n1,2\n?,3\n"
	table, err := arff.LoadString(text)
	require.NoError(t, err)

	info := NewDataProfiler().Profile(table)

	assert.Equal(t, dataset.TypeFloat64, info.ColumnTypes["n"])
	assert.Equal(t, dataset.TypeInt64, info.ColumnTypes["m"])
}

func TestColumnSummaries(t *testing.T) {
	table, err := arff.LoadString(testkit.SmallARFF)
	require.NoError(t, err)

	info := NewDataProfiler().Profile(table)

	src := info.ColumnSummaries["src_bytes"]
	require.NotNil(t, src.Numeric)
	assert.Nil(t, src.Categorical)
	assert.Equal(t, 10, src.Count)
	assert.Equal(t, 0.0, src.Numeric.Min)
	assert.Equal(t, 491.0, src.Numeric.Max)
	assert.InDelta(t, 168.9, src.Numeric.Mean, 1e-9)
	assert.Equal(t, 172.5, src.Numeric.Median)

	class := info.ColumnSummaries["class"]
	require.NotNil(t, class.Categorical)
	assert.Equal(t, 2, class.Categorical.Unique)
	assert.Equal(t, 5, class.Categorical.Freq)
	assert.Equal(t, "anomaly", class.Categorical.Top)
}

func TestMemoryUsageBytes(t *testing.T) {
	text := "@relation r\n@attribute x real\n@attribute s string\n@data\n1,abc\n2,?\n"
	table, err := arff.LoadString(text)
	require.NoError(t, err)

	// index + 2 numeric cells + 2 pointers + one 3-byte string + one missing cell
	want := int64(132 + 2*8 + 2*8 + (49 + 3) + 16)
	assert.Equal(t, want, MemoryUsageBytes(table))
	assert.Equal(t, 0.0, MemoryUsageMB(table))
}
