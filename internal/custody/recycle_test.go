package custody

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/handreceipt/internal/db"
	"github.com/erazemk/handreceipt/internal/model"
	"github.com/erazemk/handreceipt/internal/store"
)

func TestSoftDeleteBlocksIssued(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1", "W2")
	_, err := svc.Issue(ctx, []string{"W2"}, "SGT Doe", "", "")
	require.NoError(t, err)

	res, err := svc.SoftDelete(ctx, []string{"W1", "W2", "NOPE"}, "damaged")
	require.NoError(t, err)
	requireConsistent(t, database)

	require.Len(t, res.Succeeded(), 1)
	require.Equal(t, "W1", res.Succeeded()[0].Serial)

	blocked := res.Blocked()
	require.Len(t, blocked, 1)
	require.Equal(t, "W2", blocked[0].Serial)
	require.Equal(t, "Issued", blocked[0].Reason())

	nope, _ := res.Outcome("NOPE")
	require.ErrorIs(t, nope.Err, ErrNotFound)

	// The blocked item is unchanged.
	w2, err := store.GetLiveItemBySerial(ctx, database, "W2")
	require.NoError(t, err)
	require.Equal(t, "SGT Doe", w2.CustodianName)

	bin, err := svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Len(t, bin, 1)
	d, ok := bin[0].Deletion()
	require.True(t, ok)
	require.Equal(t, "damaged", d.Reason)
	require.True(t, d.DeletedAt.Equal(testNow))
}

func TestDeletedItemsAreInvisible(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1")
	_, err := svc.SoftDelete(ctx, []string{"W1"}, "")
	require.NoError(t, err)

	res, err := svc.Issue(ctx, []string{"W1"}, "SGT Doe", "", "")
	require.NoError(t, err)
	out, _ := res.Outcome("W1")
	require.ErrorIs(t, out.Err, ErrNotFound)

	res, err = svc.SoftDelete(ctx, []string{"W1"}, "")
	require.NoError(t, err)
	out, _ = res.Outcome("W1")
	require.ErrorIs(t, out.Err, ErrNotFound)
}

func TestRestore(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1", "W2")
	_, err := svc.SoftDelete(ctx, []string{"W1"}, "lost")
	require.NoError(t, err)

	res, err := svc.Restore(ctx, []string{"W1", "W2", "NOPE"})
	require.NoError(t, err)
	requireConsistent(t, database)

	w1, _ := res.Outcome("W1")
	require.True(t, w1.OK())
	require.True(t, w1.Item.IsOnHand())

	w2, _ := res.Outcome("W2")
	require.ErrorIs(t, w2.Err, ErrNotDeleted)
	nope, _ := res.Outcome("NOPE")
	require.ErrorIs(t, nope.Err, ErrNotFound)

	bin, err := svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Empty(t, bin)
}

func TestRestoreSerialConflict(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1")
	_, err := svc.SoftDelete(ctx, []string{"W1"}, "")
	require.NoError(t, err)

	// A new unit reuses the serial while the old one sits in the bin.
	seed(t, svc, "W1")

	res, err := svc.Restore(ctx, []string{"W1"})
	require.NoError(t, err)
	out, _ := res.Outcome("W1")
	require.ErrorIs(t, out.Err, ErrSerialConflict)

	bin, err := svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Len(t, bin, 1, "conflicting restore leaves the bin alone")
	requireConsistent(t, database)
}

func TestRestorePicksMostRecentDeletion(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	clock := testNow
	svc := NewService(database, nil, WithClock(func() time.Time { return clock }))

	first, err := svc.AddItem(ctx, model.ItemFields{Model: "Old", Category: "Weapon", Serial: "W1"})
	require.NoError(t, err)
	_, err = svc.SoftDelete(ctx, []string{"W1"}, "first")
	require.NoError(t, err)

	clock = testNow.Add(time.Hour)
	second, err := svc.AddItem(ctx, model.ItemFields{Model: "New", Category: "Weapon", Serial: "W1"})
	require.NoError(t, err)
	_, err = svc.SoftDelete(ctx, []string{"W1"}, "second")
	require.NoError(t, err)

	res, err := svc.Restore(ctx, []string{"W1"})
	require.NoError(t, err)
	out, _ := res.Outcome("W1")
	require.True(t, out.OK())
	require.Equal(t, second.ID, out.Item.ID)
	require.NotEqual(t, first.ID, out.Item.ID)
}

func TestPurge(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1", "W2")
	_, err := svc.SoftDelete(ctx, []string{"W1"}, "")
	require.NoError(t, err)
	seed(t, svc, "W1")
	_, err = svc.SoftDelete(ctx, []string{"W1"}, "")
	require.NoError(t, err)
	seed(t, svc, "W1")

	res, err := svc.Purge(ctx, []string{"W1", "W2"})
	require.NoError(t, err)

	w1, _ := res.Outcome("W1")
	require.True(t, w1.OK())
	w2, _ := res.Outcome("W2")
	require.ErrorIs(t, w2.Err, ErrNotDeleted)

	bin, err := svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Empty(t, bin, "every deleted record of the serial is erased")

	live, err := store.GetLiveItemBySerial(ctx, database, "W1")
	require.NoError(t, err)
	require.NotNil(t, live, "the live W1 survives the purge")
	requireConsistent(t, database)

	events, err := store.ListEvents(ctx, database, store.EventFilter{Serial: "W1"})
	require.NoError(t, err)
	var purged int
	for _, e := range events {
		if e.Action == model.EventPurged {
			purged++
		}
	}
	require.Equal(t, 2, purged)
}
