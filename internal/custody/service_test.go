package custody

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/handreceipt/internal/db"
	"github.com/erazemk/handreceipt/internal/model"
	"github.com/erazemk/handreceipt/internal/store"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	return NewService(database, nil, WithClock(func() time.Time { return testNow })), database
}

func seed(t *testing.T, svc *Service, serials ...string) {
	t.Helper()
	for _, serial := range serials {
		_, err := svc.AddItem(context.Background(), model.ItemFields{Model: "M4A1", Category: "Weapon", Serial: serial})
		require.NoError(t, err)
	}
}

// requireConsistent checks that every stored item satisfies the status and
// custodian link rules.
func requireConsistent(t *testing.T, database *sql.DB) {
	t.Helper()
	var broken int
	err := database.QueryRow(`SELECT COUNT(*) FROM items
		WHERE (status = 'issued') <> (custodian_id IS NOT NULL)`).Scan(&broken)
	require.NoError(t, err)
	require.Zero(t, broken, "issued items must have a custodian and only they")

	err = database.QueryRow(`SELECT COUNT(*) FROM items i LEFT JOIN deletions d ON d.item_id = i.id
		WHERE (i.status = 'deleted') <> (d.item_id IS NOT NULL)`).Scan(&broken)
	require.NoError(t, err)
	require.Zero(t, broken, "deleted items must have a deletion record and only they")

	err = database.QueryRow(`SELECT COUNT(*) FROM (
		SELECT serial FROM items WHERE status <> 'deleted' GROUP BY serial HAVING COUNT(*) > 1)`).Scan(&broken)
	require.NoError(t, err)
	require.Zero(t, broken, "live serials must be unique")
}

func TestIssueAndReturnRoundTrip(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1", "W2")

	res, err := svc.Issue(ctx, []string{"W1", "W2"}, "SGT Doe", "S4 Supply", "555-0100")
	require.NoError(t, err)
	require.Len(t, res.Succeeded(), 2)
	require.Empty(t, res.Rejected())
	requireConsistent(t, database)

	out, ok := res.Outcome("W1")
	require.True(t, ok)
	require.Equal(t, "SGT Doe", out.Item.CustodianName)

	custodians, err := svc.Custodians(ctx)
	require.NoError(t, err)
	require.Len(t, custodians, 1)
	require.Equal(t, 2, custodians[0].IssuedCount)
	require.Equal(t, "S4 Supply", custodians[0].IssuedBy)

	res, err = svc.Return(ctx, []string{"W1", "W2"})
	require.NoError(t, err)
	require.Len(t, res.Succeeded(), 2)
	requireConsistent(t, database)

	for _, serial := range []string{"W1", "W2"} {
		item, err := store.GetLiveItemBySerial(ctx, database, serial)
		require.NoError(t, err)
		require.True(t, item.IsOnHand())
	}

	custodians, err = svc.Custodians(ctx)
	require.NoError(t, err)
	require.Empty(t, custodians, "custodian holding nothing is not listed")

	// The record itself stays.
	c, err := store.GetCustodianByName(ctx, database, "SGT Doe")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestIssueRejectsPerSerial(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1", "W2")

	_, err := svc.Issue(ctx, []string{"W1"}, "SGT Doe", "", "")
	require.NoError(t, err)

	res, err := svc.Issue(ctx, []string{"W1", "W2", "NOPE", "W2"}, "SPC Roe", "", "")
	require.NoError(t, err)
	require.Len(t, res.Outcomes(), 3, "repeated serials collapse")

	w1, _ := res.Outcome("W1")
	require.ErrorIs(t, w1.Err, ErrAlreadyIssued)
	require.Equal(t, "Issued", w1.Reason())

	nope, _ := res.Outcome("NOPE")
	require.ErrorIs(t, nope.Err, ErrNotFound)

	w2, _ := res.Outcome("W2")
	require.True(t, w2.OK())
	require.Equal(t, "SPC Roe", w2.Item.CustodianName)

	// W1 still belongs to the first custodian.
	item, err := store.GetLiveItemBySerial(ctx, database, "W1")
	require.NoError(t, err)
	require.Equal(t, "SGT Doe", item.CustodianName)
	requireConsistent(t, database)
}

func TestIssueRequiresCustodian(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc, "W1")

	_, err := svc.Issue(context.Background(), []string{"W1"}, "   ", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestIssueOverwritesCustodianMetadata(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1", "W2")

	_, err := svc.Issue(ctx, []string{"W1"}, "SGT Doe", "S4 Supply", "555-0100")
	require.NoError(t, err)
	_, err = svc.Issue(ctx, []string{"W2"}, "SGT Doe", "Arms Room", "")
	require.NoError(t, err)

	c, err := store.GetCustodianByName(ctx, database, "SGT Doe")
	require.NoError(t, err)
	require.Equal(t, "Arms Room", c.IssuedBy)
	require.Empty(t, c.Contact)
	require.Equal(t, 2, c.IssuedCount)
}

func TestReturnRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1")

	res, err := svc.Return(ctx, []string{"W1", "NOPE"})
	require.NoError(t, err)

	w1, _ := res.Outcome("W1")
	require.ErrorIs(t, w1.Err, ErrNotIssued)
	nope, _ := res.Outcome("NOPE")
	require.ErrorIs(t, nope.Err, ErrNotFound)
	require.Empty(t, res.Succeeded())
}

func TestValidateOnHandAndIssued(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1", "W2")
	_, err := svc.Issue(ctx, []string{"W2"}, "SGT Doe", "", "")
	require.NoError(t, err)

	a, err := svc.ValidateOnHand(ctx, []string{"W1", "W2", "NOPE"})
	require.NoError(t, err)
	require.Len(t, a.Available, 1)
	require.Equal(t, "W1", a.Available[0].Serial)
	require.Equal(t, []string{"NOPE"}, a.NotFound)
	require.Equal(t, []string{"W2"}, a.AlreadyIssued)

	r, err := svc.ValidateIssued(ctx, []string{"W1", "W2", "NOPE"})
	require.NoError(t, err)
	require.Len(t, r.Issued, 1)
	require.Equal(t, "W2", r.Issued[0].Serial)
	require.Equal(t, []string{"W1", "NOPE"}, r.NotIssued)
}

func TestUpdateCustodianMetadataLeavesItems(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1")
	_, err := svc.Issue(ctx, []string{"W1"}, "SGT Doe", "S4", "")
	require.NoError(t, err)

	c, err := svc.UpdateCustodianMetadata(ctx, "SGT Doe", "Arms Room", "x1234")
	require.NoError(t, err)
	require.Equal(t, "x1234", c.Contact)

	item, err := store.GetLiveItemBySerial(ctx, database, "W1")
	require.NoError(t, err)
	id, ok := item.CustodianID()
	require.True(t, ok)
	require.Equal(t, c.ID, id)

	_, err = svc.UpdateCustodianMetadata(ctx, "", "x", "y")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransitionsRecordEvents(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1")

	_, err := svc.Issue(ctx, []string{"W1"}, "SGT Doe", "S4", "")
	require.NoError(t, err)
	_, err = svc.Return(ctx, []string{"W1"})
	require.NoError(t, err)
	_, err = svc.SoftDelete(ctx, []string{"W1"}, "damaged")
	require.NoError(t, err)

	events, err := store.ListEvents(ctx, database, store.EventFilter{Serial: "W1"})
	require.NoError(t, err)

	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	require.ElementsMatch(t, []string{
		model.EventCreated, model.EventIssued, model.EventReturned, model.EventDeleted,
	}, actions)
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from   model.Status
		action Action
		want   error
	}{
		{model.OnHand{}, ActionIssue, nil},
		{model.Issued{CustodianID: 1}, ActionIssue, ErrAlreadyIssued},
		{model.Deleted{}, ActionIssue, ErrNotFound},
		{model.Issued{CustodianID: 1}, ActionReturn, nil},
		{model.OnHand{}, ActionReturn, ErrNotIssued},
		{model.OnHand{}, ActionDelete, nil},
		{model.Issued{CustodianID: 1}, ActionDelete, ErrAlreadyIssued},
		{model.Deleted{}, ActionRestore, nil},
		{model.OnHand{}, ActionRestore, ErrNotDeleted},
		{model.Deleted{}, ActionPurge, nil},
		{model.Issued{CustodianID: 1}, ActionPurge, ErrNotDeleted},
		{model.OnHand{}, Action("steal"), ErrInvalidInput},
	}

	for _, tt := range tests {
		err := CheckTransition(tt.from, tt.action)
		if tt.want == nil {
			require.NoError(t, err, "%s from %s", tt.action, tt.from.Name())
			continue
		}
		require.ErrorIs(t, err, tt.want, "%s from %s", tt.action, tt.from.Name())
	}
}

func TestParseSerials(t *testing.T) {
	got := ParseSerials("W1\r\n W2 ,W3\n\n,W1,  \nW4")
	require.Equal(t, []string{"W1", "W2", "W3", "W4"}, got)
	require.Empty(t, ParseSerials(" \n , "))
}
