package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTable() *Table {
	attrs := []Attribute{
		{Name: "duration", Kind: KindNumeric},
		{Name: "protocol", Kind: KindNominal, NominalValues: []string{"tcp", "udp"}},
	}
	rows := [][]Value{
		{NumberValue(0), StringValue("tcp")},
		{NumberValue(2.5), StringValue("udp")},
		{MissingValue(), StringValue("tcp")},
	}
	return NewTable("kdd", attrs, rows)
}

func TestTableColumns(t *testing.T) {
	table := sampleTable()

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"duration", "protocol"}, table.ColumnNames())
	assert.Equal(t, 1, table.ColumnIndex("protocol"))
	assert.Equal(t, -1, table.ColumnIndex("missing"))
	assert.True(t, table.HasColumn("duration"))
	assert.Equal(t, []float64{0, 2.5}, table.NumericColumn(0))
	assert.Equal(t, []string{"0.0", "2.5", "?"}, table.ColumnKeys(0))
	assert.Equal(t, []string{"tcp", "udp", "tcp"}, table.ColumnKeys(1))
}

func TestTableSubsetKeepsOrigin(t *testing.T) {
	table := sampleTable()

	sub := table.Subset([]int{2, 0})
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []int{2, 0}, sub.Origin)

	nested := sub.Subset([]int{1})
	assert.Equal(t, []int{0}, nested.Origin)
	assert.Equal(t, "tcp", nested.Rows[0][1].Str)
}

func TestDefaultSplitParams(t *testing.T) {
	p := DefaultSplitParams()
	assert.Equal(t, 0.4, p.TestSize)
	assert.Equal(t, 0.5, p.ValSize)
	assert.Equal(t, int64(42), p.RandomState)
	assert.True(t, p.Shuffle)
	assert.Empty(t, p.Stratify)
}

func TestSplitParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultSplitParams().Validate())

	p := DefaultSplitParams()
	p.TestSize = 0.05
	assert.ErrorContains(t, p.Validate(), "test_size")

	p = DefaultSplitParams()
	p.ValSize = 0.6
	assert.ErrorContains(t, p.Validate(), "val_size")

	p = DefaultSplitParams()
	p.TestSize, p.ValSize = MinFraction, MaxFraction
	assert.NoError(t, p.Validate())
}

func TestColumnKeysFollowStorage(t *testing.T) {
	attrs := []Attribute{
		{Name: "count", Kind: KindNumeric, Integer: true},
		{Name: "flag", Kind: KindNumeric, Integer: true},
		{Name: "rate", Kind: KindNumeric},
	}
	rows := [][]Value{
		{NumberValue(1), NumberValue(0), NumberValue(1)},
		{NumberValue(2), MissingValue(), NumberValue(0.25)},
	}
	table := NewTable("kdd", attrs, rows)

	assert.True(t, table.IntegerStorage(0))
	assert.False(t, table.IntegerStorage(1), "a missing value widens the column to float")
	assert.False(t, table.IntegerStorage(2))

	assert.Equal(t, []string{"1", "2"}, table.ColumnKeys(0))
	assert.Equal(t, []string{"0.0", "?"}, table.ColumnKeys(1))
	assert.Equal(t, []string{"1.0", "0.25"}, table.ColumnKeys(2))

	// storage is decided by the whole table, not by the rows a subset happens to hold
	sub := table.Subset([]int{0})
	assert.Equal(t, []string{"0.0"}, sub.ColumnKeys(1))
}
