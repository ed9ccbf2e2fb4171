package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestMarkFirst(t *testing.T) {
	firsts := make(map[string]map[int32]kgo.EpochOffset)
	markFirst(firsts, &kgo.Record{Topic: "orders", Partition: 0, Offset: 7, LeaderEpoch: 2})
	markFirst(firsts, &kgo.Record{Topic: "orders", Partition: 0, Offset: 8, LeaderEpoch: 2})
	markFirst(firsts, &kgo.Record{Topic: "orders", Partition: 1, Offset: 3})

	assert.Equal(t, kgo.EpochOffset{Epoch: 2, Offset: 7}, firsts["orders"][0])
	assert.Equal(t, kgo.EpochOffset{Epoch: 0, Offset: 3}, firsts["orders"][1])
}

func TestRewindOffsets(t *testing.T) {
	firsts := map[string]map[int32]kgo.EpochOffset{
		"orders": {
			0: {Epoch: 1, Offset: 40},
			1: {Epoch: 1, Offset: 0},
			2: {Epoch: 1, Offset: 12},
		},
	}

	t.Run("group never committed", func(t *testing.T) {
		got := rewindOffsets(map[string]map[int32]kgo.EpochOffset{}, firsts)
		assert.Equal(t, firsts, got)
	})

	t.Run("committed offsets win", func(t *testing.T) {
		committed := map[string]map[int32]kgo.EpochOffset{
			"orders": {
				0: {Epoch: 1, Offset: 35},
				// ahead of the batch, not trusted
				2: {Epoch: 1, Offset: 50},
			},
			"other": {0: {Epoch: 1, Offset: 9}},
		}
		got := rewindOffsets(committed, firsts)

		assert.Equal(t, map[string]map[int32]kgo.EpochOffset{
			"orders": {
				0: {Epoch: 1, Offset: 35},
				1: {Epoch: 1, Offset: 0},
				2: {Epoch: 1, Offset: 12},
			},
		}, got)
	})
}
