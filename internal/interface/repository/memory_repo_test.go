package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
)

func TestMemoryTripSaveVersioning(t *testing.T) {
	ctx := context.Background()
	trips := NewMemoryStore().TripRepository()

	trip := &entity.Trip{ID: "rome-2026", AccountID: "acct-1", Destination: "Rome"}
	if err := trips.Save(ctx, trip, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if trip.Version != 1 || trip.DocID != entity.TripDocID("acct-1", "rome-2026") {
		t.Errorf("after insert: version %d docID %q", trip.Version, trip.DocID)
	}

	if err := trips.Save(ctx, &entity.Trip{ID: "rome-2026", AccountID: "acct-1"}, 0); !errors.Is(err, repository.ErrVersionConflict) {
		t.Errorf("second insert err = %v, want ErrVersionConflict", err)
	}

	stored, err := trips.FindByID(ctx, "acct-1", "rome-2026")
	if err != nil {
		t.Fatal(err)
	}
	stored.Flights = append(stored.Flights, entity.Flight{FlightNumber: "AZ 611"})
	if err := trips.Save(ctx, stored, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := trips.Save(ctx, stored, 1); !errors.Is(err, repository.ErrVersionConflict) {
		t.Errorf("stale update err = %v, want ErrVersionConflict", err)
	}

	stored.Flights[0].FlightNumber = "changed"
	again, _ := trips.FindByID(ctx, "acct-1", "rome-2026")
	if again.Version != 2 || again.Flights[0].FlightNumber != "AZ 611" {
		t.Errorf("stored trip = %+v", again)
	}

	if _, err := trips.FindByID(ctx, "acct-2", "rome-2026"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("other account err = %v", err)
	}
}

func TestMemoryQuarantineClaim(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryStore().QuarantineRepository()
	now := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

	if err := q.Save(ctx, &entity.QuarantineEntry{ID: "q-1", AccountID: "acct-1", ReceivedAt: now}); err != nil {
		t.Fatal(err)
	}

	if err := q.Claim(ctx, "missing", "alice", now); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing claim err = %v", err)
	}
	if err := q.Claim(ctx, "q-1", "alice", now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := q.Claim(ctx, "q-1", "bob", now.Add(time.Minute)); !errors.Is(err, repository.ErrReplayInProgress) {
		t.Errorf("concurrent claim err = %v", err)
	}
	if err := q.MarkForced(ctx, "q-1", "rome-2026", "bob", now); !errors.Is(err, repository.ErrReplayInProgress) {
		t.Errorf("mark by non-claimant err = %v", err)
	}

	// A stale claim can be taken over
	if err := q.Claim(ctx, "q-1", "bob", now.Add(claimTTL+time.Second)); err != nil {
		t.Errorf("stale claim err = %v", err)
	}

	// Release by someone else is a no-op
	if err := q.Release(ctx, "q-1", "alice"); err != nil {
		t.Fatal(err)
	}
	entry, _ := q.FindByID(ctx, "q-1")
	if entry.ClaimedBy != "bob" {
		t.Errorf("ClaimedBy = %q", entry.ClaimedBy)
	}

	if err := q.MarkForced(ctx, "q-1", "rome-2026", "bob", now); err != nil {
		t.Fatalf("MarkForced: %v", err)
	}
	entry, _ = q.FindByID(ctx, "q-1")
	if entry.Status != entity.QuarantineForcedImport || entry.TripID != "rome-2026" || entry.ForcedBy != "bob" || entry.ClaimedBy != "" {
		t.Errorf("entry = %+v", entry)
	}

	if err := q.Claim(ctx, "q-1", "alice", now.Add(time.Hour)); !errors.Is(err, repository.ErrAlreadyForced) {
		t.Errorf("claim after force err = %v", err)
	}
	if err := q.MarkForced(ctx, "q-1", "rome-2026", "bob", now); !errors.Is(err, repository.ErrAlreadyForced) {
		t.Errorf("second MarkForced err = %v", err)
	}
}

func TestMemoryQuarantineList(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryStore().QuarantineRepository()
	base := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

	q.Save(ctx, &entity.QuarantineEntry{ID: "old", AccountID: "acct-1", ReceivedAt: base})
	q.Save(ctx, &entity.QuarantineEntry{ID: "new", AccountID: "acct-1", ReceivedAt: base.Add(time.Hour)})
	q.Save(ctx, &entity.QuarantineEntry{ID: "other", AccountID: "acct-2", ReceivedAt: base, Status: entity.QuarantineForcedImport})

	tests := []struct {
		name    string
		filter  entity.QuarantineFilter
		wantIDs []string
	}{
		{"pending", entity.QuarantineFilter{Status: entity.QuarantinePending}, []string{"new", "old"}},
		{"account", entity.QuarantineFilter{AccountID: "acct-2"}, []string{"other"}},
		{"limit", entity.QuarantineFilter{Status: entity.QuarantinePending, Limit: 1}, []string{"new"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := q.List(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
				}
			}
		})
	}
}

func TestMemoryUploadLogs(t *testing.T) {
	ctx := context.Background()
	logs := NewMemoryStore().UploadLogRepository()

	logs.Append(ctx, &entity.UploadLog{ID: "1", AccountID: "acct-1", SourceRef: "gmail:abc"})
	logs.Append(ctx, &entity.UploadLog{ID: "2", AccountID: "acct-2"})
	logs.Append(ctx, &entity.UploadLog{ID: "3", AccountID: "acct-1"})

	got, _ := logs.ListByAccount(ctx, "acct-1", 0)
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "1" {
		t.Errorf("acct-1 logs = %+v", got)
	}
	all, _ := logs.ListByAccount(ctx, "", 2)
	if len(all) != 2 || all[0].ID != "3" {
		t.Errorf("all logs = %+v", all)
	}

	if ok, _ := logs.ExistsBySourceRef(ctx, "gmail:abc"); !ok {
		t.Error("source ref not found")
	}
	if ok, _ := logs.ExistsBySourceRef(ctx, "gmail:zzz"); ok {
		t.Error("unexpected source ref")
	}

	logs.Append(ctx, &entity.UploadLog{ID: "4", SourceRef: "gmail:retry", State: entity.UploadStateFailedPersistence})
	if ok, _ := logs.ExistsBySourceRef(ctx, "gmail:retry"); ok {
		t.Error("failed persistence attempt should not count")
	}
	logs.Append(ctx, &entity.UploadLog{ID: "5", SourceRef: "gmail:retry", State: "REJECTED_VALIDATION"})
	if ok, _ := logs.ExistsBySourceRef(ctx, "gmail:retry"); !ok {
		t.Error("settled attempt should count")
	}
}

func TestSeedAccountsYAML(t *testing.T) {
	store := NewMemoryStore()
	n, err := store.SeedAccountsYAML([]byte(`
accounts:
  - id: acct-1
    email: ann@example.com
    linked_emails: [Ann@Example.com, ann.work@example.com]
    family_members:
      - id: fm-ben
        name: Benjamin Smith
        aliases: [Ben Smith]
  - id: acct-2
    email: carol@example.com
    linked_emails: [carol@example.com]
`))
	if err != nil || n != 2 {
		t.Fatalf("SeedAccountsYAML = %d, %v", n, err)
	}

	account, err := store.Accounts().FindByLinkedEmail(context.Background(), " ANN@example.com ")
	if err != nil || account.ID != "acct-1" {
		t.Fatalf("FindByLinkedEmail = %+v, %v", account, err)
	}
	if len(account.FamilyMembers) != 1 || account.FamilyMembers[0].Aliases[0] != "Ben Smith" {
		t.Errorf("family = %+v", account.FamilyMembers)
	}
	if _, err := store.Accounts().FindByLinkedEmail(context.Background(), "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown email err = %v", err)
	}

	if _, err := store.SeedAccountsYAML([]byte("accounts:\n  - email: x@example.com\n")); err == nil {
		t.Error("entry without id should fail")
	}
	if _, err := store.SeedAccountsYAML([]byte("accounts: [")); err == nil {
		t.Error("invalid yaml should fail")
	}
}

func TestMemoryAccountUpsert(t *testing.T) {
	ctx := context.Background()
	accounts := NewMemoryStore().Accounts()

	if err := accounts.Upsert(ctx, &entity.Account{LinkedEmails: []string{"x@example.com"}}); err == nil {
		t.Error("account without id should fail")
	}

	if err := accounts.Upsert(ctx, &entity.Account{ID: "acct-1", LinkedEmails: []string{"Ann@Example.com"}}); err != nil {
		t.Fatal(err)
	}
	if err := accounts.Upsert(ctx, &entity.Account{ID: "acct-1", LinkedEmails: []string{" ANN.Work@example.com "}}); err != nil {
		t.Fatal(err)
	}

	if _, err := accounts.FindByLinkedEmail(ctx, "ann@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("replaced address err = %v", err)
	}
	account, err := accounts.FindByLinkedEmail(ctx, "ann.work@EXAMPLE.com")
	if err != nil || account.ID != "acct-1" || account.LinkedEmails[0] != "ann.work@example.com" {
		t.Errorf("FindByLinkedEmail = %+v, %v", account, err)
	}
}
