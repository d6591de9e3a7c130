package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sharecycle/sharecycle/internal/db"
	"github.com/sharecycle/sharecycle/internal/model"
)

func mustUser(t *testing.T, ctx context.Context, database Querier, username string) *model.User {
	t.Helper()
	res, err := database.ExecContext(ctx,
		`INSERT INTO users (username, display_name, password_hash, role) VALUES (?, ?, 'x', 'user')`,
		username, username,
	)
	if err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	id, _ := res.LastInsertId()
	return &model.User{ID: id, Username: username, DisplayName: username, Role: model.RoleUser}
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, ctx, database, "owner")

	item, err := CreateItem(ctx, database, owner.ID, "Desk lamp", "Warm light", "home", model.ListingDonation)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Title != "Desk lamp" {
		t.Errorf("expected title 'Desk lamp', got %q", item.Title)
	}
	if item.Status != model.ItemStatusAvailable {
		t.Errorf("expected status 'available', got %q", item.Status)
	}
	if item.OwnerName != "owner" {
		t.Errorf("expected joined owner name, got %q", item.OwnerName)
	}
	if !item.Available() {
		t.Error("new item should be available")
	}
}

func TestListItemsFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, ctx, database, "alice")
	bob := mustUser(t, ctx, database, "bob")

	CreateItem(ctx, database, alice.ID, "Book", "", "", model.ListingExchange)
	lamp, _ := CreateItem(ctx, database, alice.ID, "Lamp", "", "", model.ListingDonation)
	CreateItem(ctx, database, bob.ID, "Chair", "", "", model.ListingDonation)
	SetItemStatus(ctx, database, lamp.ID, model.ItemStatusDonated)

	all, _ := ListItems(ctx, database, ItemFilter{})
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}

	byOwner, _ := ListItems(ctx, database, ItemFilter{OwnerID: alice.ID})
	if len(byOwner) != 2 {
		t.Errorf("expected 2 items for alice, got %d", len(byOwner))
	}

	available, _ := ListItems(ctx, database, ItemFilter{Status: model.ItemStatusAvailable, ListingType: model.ListingDonation})
	if len(available) != 1 || available[0].Title != "Chair" {
		t.Errorf("expected only Chair, got %+v", available)
	}
}

func TestSoftDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, ctx, database, "owner")

	item, _ := CreateItem(ctx, database, owner.ID, "Delete Me", "", "", model.ListingExchange)
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	items, _ := ListItems(ctx, database, ItemFilter{})
	if len(items) != 0 {
		t.Errorf("expected 0 items after delete, got %d", len(items))
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got == nil || got.DeletedAt == nil || got.Status != model.ItemStatusRemoved {
		t.Errorf("expected soft-deleted removed item, got %+v", got)
	}
	if got.Available() {
		t.Error("deleted item must not be available")
	}
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, ctx, database, "owner")
	item, _ := CreateItem(ctx, database, owner.ID, "Photo", "", "", model.ListingExchange)

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil || data != nil || mime != "" {
		t.Fatalf("expected no image, got %d bytes %q %v", len(data), mime, err)
	}

	SetItemImage(ctx, database, item.ID, []byte{1, 2, 3}, "image/jpeg")

	data, mime, _ = GetItemImage(ctx, database, item.ID)
	if len(data) != 3 || mime != "image/jpeg" {
		t.Errorf("unexpected image: %v %q", data, mime)
	}
}

func TestRemoveIdleItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, ctx, database, "owner")
	requester := mustUser(t, ctx, database, "requester")
	item, _ := CreateItem(ctx, database, owner.ID, "Bike", "", "", model.ListingDonation)

	if err := InsertRequest(ctx, database, newRequest("req-1", item, requester.ID)); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	if err := RemoveIdleItem(ctx, database, item.ID); !errors.Is(err, ErrItemBusy) {
		t.Fatalf("expected ErrItemBusy, got %v", err)
	}
	got, _ := GetItem(ctx, database, item.ID)
	if got.DeletedAt != nil {
		t.Fatal("busy item must not be removed")
	}

	if err := CompareAndSetStatus(ctx, database, "req-1", model.StatusPending, model.StatusRejected, time.Now()); err != nil {
		t.Fatalf("CompareAndSetStatus: %v", err)
	}
	if err := RemoveIdleItem(ctx, database, item.ID); err != nil {
		t.Fatalf("RemoveIdleItem: %v", err)
	}
	got, _ = GetItem(ctx, database, item.ID)
	if got.DeletedAt == nil || got.Status != model.ItemStatusRemoved {
		t.Errorf("expected removed item, got %+v", got)
	}
}
