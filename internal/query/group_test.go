/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateByMember(t *testing.T) {
	recs := sampleRecords()
	currentList := map[string]string{"c1": "Done", "c2": "Doing"}

	rep, err := Aggregate(recs, "member", currentList, []string{"Done"}, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, rep.Keys)

	alice := rep.Groups["alice"]
	require.NotNil(t, alice)
	// c1 produced two records but its estimate counts once
	assert.Equal(t, 5.0, alice.Point)
	assert.Equal(t, 0.0, alice.Total)
	assert.True(t, alice.Done)

	bob := rep.Groups["bob"]
	require.NotNil(t, bob)
	assert.Equal(t, 3.0, bob.Point)
	assert.Equal(t, 2.0, bob.Result)
	assert.Equal(t, 1.0, bob.Review)
	assert.Equal(t, 3.0, bob.Total)
	assert.False(t, bob.Done)

	// grand totals, point deduplicated across the whole set
	assert.Equal(t, 8.0, rep.TotalPoint)
	assert.Equal(t, 2.0, rep.TotalResult)
	assert.Equal(t, 1.0, rep.TotalReview)
	assert.Equal(t, 3.0, rep.TotalTime)
}

func TestAggregateByListName(t *testing.T) {
	recs := sampleRecords()
	rep, err := Aggregate(recs, "listName", nil, nil, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []string{"Doing", "Done"}, rep.Keys)
	// c1 and c2 both pass through Doing
	assert.Equal(t, 8.0, rep.Groups["Doing"].Point)
	assert.Equal(t, 5.0, rep.Groups["Done"].Point)
	// grand total still counts each card once
	assert.Equal(t, 8.0, rep.TotalPoint)
}

func TestAggregateUngrouped(t *testing.T) {
	rep, err := Aggregate(sampleRecords(), "", nil, nil, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, rep.Keys)
	assert.Empty(t, rep.Groups)
	assert.Equal(t, 8.0, rep.TotalPoint)
	assert.Equal(t, 2.0, rep.TotalResult)
	assert.Equal(t, 1.0, rep.TotalReview)
	assert.Equal(t, 3.0, rep.TotalTime)
}

func TestAggregateUnknownField(t *testing.T) {
	_, err := Aggregate(sampleRecords(), "nope", nil, nil, time.UTC)
	assert.ErrorContains(t, err, "unknown group field")
}

func TestAggregateEmpty(t *testing.T) {
	rep, err := Aggregate(nil, "member", nil, nil, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, rep.Keys)
	assert.Zero(t, rep.TotalPoint)
}

func TestGroupKeyRendering(t *testing.T) {
	r := sampleRecords()[0]
	key, err := GroupKey(r, "point", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "5", key)

	key, err = GroupKey(r, "inDate", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024/03/01 09:00:00", key)

	_, err = GroupKey(r, "bogus", time.UTC)
	assert.Error(t, err)
}
