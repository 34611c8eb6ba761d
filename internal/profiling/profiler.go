package profiling

import (
	"math"
	"sort"

	"divdataset/domain/dataset"

	"github.com/montanaflynn/stats"
)

// DataProfiler derives the dataset profile reported after upload
type DataProfiler struct{}

// NewDataProfiler creates a new data profiler
func NewDataProfiler() *DataProfiler {
	return &DataProfiler{}
}

// Profile computes the descriptive metadata of a table. It is a pure function of the table.
func (dp *DataProfiler) Profile(t *dataset.Table) dataset.Info {
	info := dataset.Info{
		TotalRecords:       t.Len(),
		ColumnsCount:       len(t.Attributes),
		Columns:            t.ColumnNames(),
		ColumnTypes:        make(map[string]string, len(t.Attributes)),
		NumericColumns:     []string{},
		CategoricalColumns: []string{},
		MemoryUsageMB:      MemoryUsageMB(t),
		ColumnSummaries:    make(map[string]dataset.ColumnSummary, len(t.Attributes)),
	}

	for i, attr := range t.Attributes {
		storage := StorageType(t, i)
		info.ColumnTypes[attr.Name] = storage
		if IsNumericType(storage) {
			info.NumericColumns = append(info.NumericColumns, attr.Name)
		} else {
			info.CategoricalColumns = append(info.CategoricalColumns, attr.Name)
		}
		info.ColumnSummaries[attr.Name] = dp.SummarizeColumn(t, i)
	}

	return info
}

// StorageType infers the in-memory storage label of a column.
// INTEGER columns widen to float64 as soon as one value is missing.
func StorageType(t *dataset.Table, col int) string {
	attr := t.Attributes[col]
	if !attr.IsNumeric() {
		return dataset.TypeObject
	}
	if t.IntegerStorage(col) {
		return dataset.TypeInt64
	}
	return dataset.TypeFloat64
}

// IsNumericType reports whether a storage label is a numeric kind
func IsNumericType(storage string) bool {
	return storage == dataset.TypeFloat64 || storage == dataset.TypeInt64
}

// SummarizeColumn computes count/missing plus numeric or categorical statistics
func (dp *DataProfiler) SummarizeColumn(t *dataset.Table, col int) dataset.ColumnSummary {
	summary := dataset.ColumnSummary{}
	for _, row := range t.Rows {
		if row[col].Missing {
			summary.Missing++
		} else {
			summary.Count++
		}
	}

	if t.Attributes[col].IsNumeric() {
		summary.Numeric = numericSummary(t.NumericColumn(col))
		return summary
	}
	summary.Categorical = categoricalSummary(t, col)
	return summary
}

func numericSummary(data []float64) *dataset.NumericSummary {
	if len(data) == 0 {
		return &dataset.NumericSummary{}
	}

	// Errors only occur on empty input, which is handled above
	mean, _ := stats.Mean(data)
	stdDev, _ := stats.StandardDeviationSample(data)
	minimum, _ := stats.Min(data)
	maximum, _ := stats.Max(data)
	median, _ := stats.Median(data)

	if math.IsNaN(stdDev) {
		stdDev = 0
	}

	return &dataset.NumericSummary{
		Mean:   round(mean, 4),
		StdDev: round(stdDev, 4),
		Min:    minimum,
		Max:    maximum,
		Median: median,
	}
}

func categoricalSummary(t *dataset.Table, col int) *dataset.CategoricalSummary {
	counts := make(map[string]int)
	for _, row := range t.Rows {
		if !row[col].Missing {
			counts[row[col].Str]++
		}
	}

	summary := &dataset.CategoricalSummary{Unique: len(counts)}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > summary.Freq {
			summary.Top = k
			summary.Freq = counts[k]
		}
	}
	return summary
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
