package logindex

import (
	"testing"

	"github.com/forestrie/go-logindex/gti"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	s := newTestState(t)
	p := s.params
	logEntry := p.logEntryGTI(5)
	row := p.MapRowGTI(1, 2)

	tests := []struct {
		name   string
		index  gti.Index
		region Region
	}{
		{"root", gti.Root, RegionRoot},
		{"next entry", GTINextEntry, RegionNextEntry},
		{"epoch history", GTIEpochHistory, RegionEpochHistory},
		{"epoch root", p.EpochRootGTI(3), RegionEpochHistory},
		{"filter maps", gti.Merge(p.EpochRootGTI(0), GTIFilterMaps), RegionFilterMaps},
		{"row root", row, RegionFilterMaps},
		{"row count", listCountGTI(row), RegionRow},
		{"row chunk", p.ProgListChunkGTI(row, 3), RegionRow},
		{"index entries", gti.Merge(p.EpochRootGTI(0), GTIIndexEntries), RegionIndexEntries},
		{"index entry root", p.IndexEntryGTI(5), RegionIndexEntries},
		{"log entry root", logEntry, RegionIndexEntry},
		{"entry meta", p.entryMetaGTI(5, GTIEntryMetaField1), RegionEntryMeta},
		{"address", gti.Merge(logEntry, GTILogAddress), RegionLogEntry},
		{"topic", topicGTI(logEntry, 2), RegionTopics},
		{"topic count", listCountGTI(gti.Merge(logEntry, GTILogTopics)), RegionTopics},
		{"data chunk", p.ProgListChunkGTI(gti.Merge(logEntry, GTILogData), 7), RegionData},
		{"data count", listCountGTI(gti.Merge(logEntry, GTILogData)), RegionData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, err := s.Classify(tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.region, region, "got %s", region)
		})
	}
}

func TestClassifyInvalid(t *testing.T) {
	s := newTestState(t)
	p := s.params
	logEntry := p.logEntryGTI(0)

	tests := []struct {
		name  string
		index gti.Index
	}{
		{"below next entry", gti.Merge(GTINextEntry, gti.FromUint64(2))},
		{"below a row count", gti.Merge(listCountGTI(p.MapRowGTI(0, 0)), gti.FromUint64(3))},
		{"unused log entry field", gti.Merge(gti.Merge(logEntry, gti.FromUint64(7)), gti.FromUint64(2))},
		{"below a topic", gti.Merge(topicGTI(logEntry, 0), gti.FromUint64(2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Classify(tt.index)
			assert.ErrorIs(t, err, ErrInvalidTreeNode)
			_, err = s.empty.EmptyNode(tt.index)
			assert.ErrorIs(t, err, ErrInvalidTreeNode)
		})
	}
}

func TestEmptyNodeContainersAreZero(t *testing.T) {
	s := newTestState(t)
	p := s.params
	for _, index := range []gti.Index{
		p.EpochRootGTI(2),
		p.MapRowGTI(0, 1),
		p.IndexEntryGTI(9),
		p.logEntryGTI(9),
		GTINextEntry,
	} {
		v, err := s.empty.EmptyNode(index)
		require.NoError(t, err)
		assert.True(t, v.IsZero(), "%s", index)
	}

	// an empty vector above the containers is not
	v, err := s.empty.EmptyNode(GTIEpochHistory)
	require.NoError(t, err)
	assert.Equal(t, s.empty.vectors[p.Log2EpochHistory], v)
	assert.False(t, v.IsZero())
}
