package custody

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/handreceipt/internal/model"
	"github.com/erazemk/handreceipt/internal/store"
)

func TestAddItemConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1")

	_, err := svc.AddItem(ctx, model.ItemFields{Model: "M4A1", Category: "Weapon", Serial: " W1 "})
	require.ErrorIs(t, err, ErrSerialConflict)

	_, err = svc.AddItem(ctx, model.ItemFields{Model: "M4A1", Serial: "W9"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestImportUpsertsBySerial(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "W1", "W2", "W3")

	_, err := svc.Issue(ctx, []string{"W1"}, "SGT Doe", "", "")
	require.NoError(t, err)
	_, err = svc.SoftDelete(ctx, []string{"W2"}, "")
	require.NoError(t, err)

	res, err := svc.Import(ctx, []model.ItemFields{
		{Model: "M4A1 SOPMOD", Category: "Weapon", Box: "C1", Serial: "W1"},
		{Model: "M4A1", Category: "Weapon", Box: "C2", Serial: "W2"},
		{Model: "PRC-152", Category: "Radio", Serial: "R1"},
		{Model: "PRC-152", Category: "Radio", Serial: "R1", AssetTag: "AT-7"},
		{Model: "PRC-152", Serial: "R2"},
	})
	require.NoError(t, err)
	requireConsistent(t, database)

	require.Len(t, res.Updated, 1)
	require.Equal(t, "W1", res.Updated[0].Serial)
	_, stillIssued := res.Updated[0].CustodianID()
	require.True(t, stillIssued, "update keeps status")
	require.Equal(t, "C1", res.Updated[0].Box)

	require.Len(t, res.Revived, 1)
	require.Equal(t, "W2", res.Revived[0].Serial)
	require.True(t, res.Revived[0].IsOnHand())
	require.Equal(t, "C2", res.Revived[0].Box)

	require.Len(t, res.Created, 1)
	require.Equal(t, "AT-7", res.Created[0].AssetTag, "last row wins")

	require.Len(t, res.Rejected, 1)
	require.ErrorIs(t, res.Rejected[0].Err, ErrInvalidInput)
	require.Equal(t, 3, res.Total())

	bin, err := svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Empty(t, bin)

	w3, err := store.GetLiveItemBySerial(ctx, database, "W3")
	require.NoError(t, err)
	require.Equal(t, "M4A1", w3.Model, "rows absent from the file are untouched")
}
