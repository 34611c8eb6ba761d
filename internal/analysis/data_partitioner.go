package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"divdataset/domain/dataset"
	"divdataset/internal/errors"
)

// ceilEpsilon absorbs float noise such as 0.4*10 = 4.000000000000001
const ceilEpsilon = 1e-9

// DataPartitioner performs the two-stage train/validation/test split
type DataPartitioner struct{}

// SplitResult holds the three partitions of a table
type SplitResult struct {
	Train      *dataset.Table
	Validation *dataset.Table
	Test       *dataset.Table
	// Stratified is false when no stratify column was requested or it was absent
	Stratified bool
}

// NewDataPartitioner creates a data partitioner
func NewDataPartitioner() *DataPartitioner {
	return &DataPartitioner{}
}

// Split partitions the table into train and holdout, then the holdout into validation and test.
// Both stages are seeded with params.RandomState. A stratify column missing from the table
// is ignored and the split proceeds unstratified.
func (dp *DataPartitioner) Split(t *dataset.Table, params dataset.SplitParams) (*SplitResult, error) {
	strataCol := -1
	if params.Stratify != "" {
		strataCol = t.ColumnIndex(params.Stratify)
	}

	all := make([]int, t.Len())
	for i := range all {
		all[i] = i
	}

	n := len(all)
	holdoutSize := ceilSize(params.TestSize, n)
	train, holdout, err := dp.partition(t, all, holdoutSize, params, strataCol)
	if err != nil {
		return nil, errors.Wrap(err, "train/holdout split failed")
	}

	// Test takes the rounded-up share of the holdout, validation the rest
	testSize := ceilSize(1-params.ValSize, len(holdout))
	validation, test, err := dp.partition(t, holdout, testSize, params, strataCol)
	if err != nil {
		return nil, errors.Wrap(err, "validation/test split failed")
	}

	return &SplitResult{
		Train:      t.Subset(train),
		Validation: t.Subset(validation),
		Test:       t.Subset(test),
		Stratified: strataCol >= 0,
	}, nil
}

// Sizes returns the row counts of the three partitions
func (r *SplitResult) Sizes() dataset.SplitSizes {
	sizes := dataset.SplitSizes{
		Train:      r.Train.Len(),
		Validation: r.Validation.Len(),
		Test:       r.Test.Len(),
	}
	sizes.Total = sizes.Train + sizes.Validation + sizes.Test
	return sizes
}

// Percentages returns each partition's share of the total, rounded to 2 decimals
func (r *SplitResult) Percentages() dataset.SplitPercentages {
	sizes := r.Sizes()
	if sizes.Total == 0 {
		return dataset.SplitPercentages{}
	}
	pct := func(v int) float64 {
		return math.Round(float64(v)/float64(sizes.Total)*100*100) / 100
	}
	return dataset.SplitPercentages{
		Train:      pct(sizes.Train),
		Validation: pct(sizes.Validation),
		Test:       pct(sizes.Test),
	}
}

func ceilSize(fraction float64, n int) int {
	return int(math.Ceil(fraction*float64(n) - ceilEpsilon))
}

// partition splits indices into (keep, hold) where hold has holdSize rows
func (dp *DataPartitioner) partition(t *dataset.Table, indices []int, holdSize int, params dataset.SplitParams, strataCol int) ([]int, []int, error) {
	n := len(indices)
	if holdSize <= 0 || holdSize >= n {
		return nil, nil, errors.SplitError(fmt.Sprintf(
			"cannot split %d rows into %d and %d: every partition needs at least one row", n, n-holdSize, holdSize))
	}

	rng := rand.New(rand.NewSource(params.RandomState))
	if strataCol < 0 {
		keep, hold := dp.randomPartition(indices, holdSize, params.Shuffle, rng)
		return keep, hold, nil
	}
	keep, hold := dp.stratifiedPartition(t, indices, holdSize, params.Shuffle, strataCol, rng)
	return keep, hold, nil
}

// randomPartition keeps the leading rows of the (optionally shuffled) order
func (dp *DataPartitioner) randomPartition(indices []int, holdSize int, shuffle bool, rng *rand.Rand) ([]int, []int) {
	order := make([]int, len(indices))
	if shuffle {
		for i, p := range rng.Perm(len(indices)) {
			order[i] = indices[p]
		}
	} else {
		copy(order, indices)
	}

	cut := len(order) - holdSize
	return order[:cut], order[cut:]
}

type stratum struct {
	members []int
	quota   float64
	take    int
}

// stratifiedPartition splits each stratum by the same fraction, allocating the holdout
// rows by largest remainder so the total is exact and each stratum is within one row
// of its proportional share
func (dp *DataPartitioner) stratifiedPartition(t *dataset.Table, indices []int, holdSize int, shuffle bool, col int, rng *rand.Rand) ([]int, []int) {
	strata := groupByStrata(t, indices, col)

	n := float64(len(indices))
	allocated := 0
	for _, s := range strata {
		s.quota = float64(len(s.members)) * float64(holdSize) / n
		s.take = int(math.Floor(s.quota + ceilEpsilon))
		if s.take > len(s.members) {
			s.take = len(s.members)
		}
		allocated += s.take
	}

	// Hand out the remaining rows by largest fractional part, then larger stratum
	byRemainder := make([]*stratum, len(strata))
	copy(byRemainder, strata)
	sort.SliceStable(byRemainder, func(i, j int) bool {
		ri := byRemainder[i].quota - float64(byRemainder[i].take)
		rj := byRemainder[j].quota - float64(byRemainder[j].take)
		if ri != rj {
			return ri > rj
		}
		return len(byRemainder[i].members) > len(byRemainder[j].members)
	})
	for _, s := range byRemainder {
		if allocated >= holdSize {
			break
		}
		if s.take < len(s.members) {
			s.take++
			allocated++
		}
	}

	var keep, hold []int
	for _, s := range strata {
		members := s.members
		if shuffle {
			rng.Shuffle(len(members), func(i, j int) {
				members[i], members[j] = members[j], members[i]
			})
		}
		cut := len(members) - s.take
		keep = append(keep, members[:cut]...)
		hold = append(hold, members[cut:]...)
	}

	if shuffle {
		rng.Shuffle(len(keep), func(i, j int) { keep[i], keep[j] = keep[j], keep[i] })
		rng.Shuffle(len(hold), func(i, j int) { hold[i], hold[j] = hold[j], hold[i] })
	}
	return keep, hold
}

// groupByStrata groups row indices by stratify value, strata in order of first appearance.
// Missing values form their own stratum.
func groupByStrata(t *dataset.Table, indices []int, col int) []*stratum {
	pos := make(map[string]int)
	var strata []*stratum
	for _, idx := range indices {
		key := t.CellKey(idx, col)
		i, ok := pos[key]
		if !ok {
			i = len(strata)
			pos[key] = i
			strata = append(strata, &stratum{})
		}
		strata[i].members = append(strata[i].members, idx)
	}
	return strata
}
