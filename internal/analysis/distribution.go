package analysis

import (
	"divdataset/domain/dataset"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// HomogeneityResult is a chi-square test of whether partitions share one distribution
type HomogeneityResult struct {
	ChiSquare        float64 `json:"chi_square"`
	DegreesOfFreedom int     `json:"degrees_of_freedom"`
	PValue           float64 `json:"p_value"`
}

// ValueCounts counts the non-missing values of a column. Absent columns yield an empty map.
func ValueCounts(t *dataset.Table, column string) map[string]int {
	counts := make(map[string]int)
	col := t.ColumnIndex(column)
	if col < 0 {
		return counts
	}
	for i, row := range t.Rows {
		if row[col].Missing {
			continue
		}
		counts[t.CellKey(i, col)]++
	}
	return counts
}

// Homogeneity builds the partitions x categories contingency table of a column and runs
// a chi-square test of homogeneity over it. Empty partitions are ignored.
func Homogeneity(column string, parts ...*dataset.Table) HomogeneityResult {
	var (
		rows       []map[string]int
		rowTotals  []float64
		categories []string
		colTotals  = make(map[string]float64)
		grand      float64
	)

	for _, part := range parts {
		counts := ValueCounts(part, column)
		total := 0
		for _, c := range counts {
			total += c
		}
		if total == 0 {
			continue
		}
		rows = append(rows, counts)
		rowTotals = append(rowTotals, float64(total))
		grand += float64(total)
	}

	// Categories in first-appearance order over the table rows keeps the flattening deterministic
	for _, part := range parts {
		col := part.ColumnIndex(column)
		if col < 0 {
			continue
		}
		for i, row := range part.Rows {
			if row[col].Missing {
				continue
			}
			key := part.CellKey(i, col)
			if _, ok := colTotals[key]; !ok {
				categories = append(categories, key)
			}
			colTotals[key]++
		}
	}

	df := (len(rows) - 1) * (len(categories) - 1)
	if df <= 0 {
		return HomogeneityResult{PValue: 1}
	}

	observed := make([]float64, 0, len(rows)*len(categories))
	expected := make([]float64, 0, len(rows)*len(categories))
	for i, counts := range rows {
		for _, cat := range categories {
			observed = append(observed, float64(counts[cat]))
			expected = append(expected, rowTotals[i]*colTotals[cat]/grand)
		}
	}

	chi := stat.ChiSquare(observed, expected)
	dist := distuv.ChiSquared{K: float64(df)}
	return HomogeneityResult{
		ChiSquare:        chi,
		DegreesOfFreedom: df,
		PValue:           1 - dist.CDF(chi),
	}
}
