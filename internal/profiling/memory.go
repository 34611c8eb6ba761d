package profiling

import (
	"divdataset/domain/dataset"
)

// Byte costs used by the footprint estimate. They mirror a 64-bit columnar
// frame: fixed-width numbers, and boxed strings behind 8-byte pointers.
const (
	indexBytes        = 132
	numericCellBytes  = 8
	pointerBytes      = 8
	stringHeaderBytes = 49
	missingCellBytes  = 16
)

// MemoryUsageBytes estimates the deep in-memory size of a table
func MemoryUsageBytes(t *dataset.Table) int64 {
	total := int64(indexBytes)
	n := int64(t.Len())

	for col, attr := range t.Attributes {
		if attr.IsNumeric() {
			total += n * numericCellBytes
			continue
		}
		total += n * pointerBytes
		for _, row := range t.Rows {
			if row[col].Missing {
				total += missingCellBytes
				continue
			}
			total += stringHeaderBytes + int64(len(row[col].Str))
		}
	}
	return total
}

// MemoryUsageMB is MemoryUsageBytes in mebibytes rounded to 2 decimals
func MemoryUsageMB(t *dataset.Table) float64 {
	return round(float64(MemoryUsageBytes(t))/1024/1024, 2)
}
