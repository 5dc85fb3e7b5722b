package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/handreceipt/internal/db"
	"github.com/erazemk/handreceipt/internal/model"
)

func TestUpsertCustodianOverwrites(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := UpsertCustodian(ctx, database, "SGT Doe", "S4 Supply", "555-0100", testNow)
	if err != nil {
		t.Fatalf("UpsertCustodian: %v", err)
	}

	second, err := UpsertCustodian(ctx, database, "SGT Doe", "Arms Room", "", testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("UpsertCustodian again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same custodian id, got %d and %d", first.ID, second.ID)
	}
	if second.IssuedBy != "Arms Room" || second.Contact != "" {
		t.Errorf("expected metadata to be overwritten, got %+v", second)
	}
}

func TestListCustodiansOnlyHolders(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	bravo, _ := UpsertCustodian(ctx, database, "bravo", "", "", testNow)
	alpha, _ := UpsertCustodian(ctx, database, "Alpha", "", "", testNow)
	UpsertCustodian(ctx, database, "Charlie", "", "", testNow)

	for i, c := range []*model.Custodian{bravo, alpha, alpha} {
		item, _ := CreateItem(ctx, database, rifle(string(rune('A'+i))), testNow)
		SetItemStatus(ctx, database, item.ID, model.StatusOnHand, model.StatusIssued, &c.ID, testNow)
	}

	list, err := ListCustodians(ctx, database)
	if err != nil {
		t.Fatalf("ListCustodians: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 custodians holding items, got %d", len(list))
	}
	if list[0].Name != "Alpha" || list[0].IssuedCount != 2 {
		t.Errorf("expected Alpha with 2 items first, got %+v", list[0])
	}
	if list[1].Name != "bravo" || list[1].IssuedCount != 1 {
		t.Errorf("expected bravo with 1 item second, got %+v", list[1])
	}

	got, _ := GetCustodianByName(ctx, database, "Charlie")
	if got == nil || got.IssuedCount != 0 {
		t.Errorf("expected Charlie with zero items, got %+v", got)
	}
}
