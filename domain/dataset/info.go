package dataset

// Storage type labels reported in Info.ColumnTypes
const (
	TypeFloat64 = "float64"
	TypeInt64   = "int64"
	TypeObject  = "object"
)

// Info is the read-only profile computed once per upload
type Info struct {
	TotalRecords       int                      `json:"total_records"`
	ColumnsCount       int                      `json:"columns_count"`
	Columns            []string                 `json:"columns"`
	ColumnTypes        map[string]string        `json:"column_types"`
	NumericColumns     []string                 `json:"numeric_columns"`
	CategoricalColumns []string                 `json:"categorical_columns"`
	MemoryUsageMB      float64                  `json:"memory_usage_mb"`
	ColumnSummaries    map[string]ColumnSummary `json:"column_summaries,omitempty"`
}

// ColumnSummary holds descriptive statistics for one column.
// Exactly one of Numeric and Categorical is set.
type ColumnSummary struct {
	Count       int                 `json:"count"`
	Missing     int                 `json:"missing"`
	Numeric     *NumericSummary     `json:"numeric,omitempty"`
	Categorical *CategoricalSummary `json:"categorical,omitempty"`
}

// NumericSummary describes a numeric column
type NumericSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// CategoricalSummary describes a non-numeric column
type CategoricalSummary struct {
	Unique int    `json:"unique"`
	Top    string `json:"top"`
	Freq   int    `json:"freq"`
}
