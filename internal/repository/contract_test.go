package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

// testTime はテスト用の固定時刻（マイクロ秒精度・UTC）を返す。
func testTime(offset time.Duration) time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(offset)
}

func strPtr(s string) *string { return &s }

func newTestItem(id, title string, tags ...string) *model.Item {
	now := testTime(0)
	if tags == nil {
		tags = []string{}
	}
	return &model.Item{
		ID:        id,
		Type:      model.ItemTypeTask,
		Title:     title,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// runRepositoryContract は全バックエンドが満たすべき振る舞いを検証する。
// newRepos は空のリポジトリ一式を返すこと。
func runRepositoryContract(t *testing.T, newRepos func(t *testing.T) *Repositories) {
	t.Run("Item_SaveAndFind", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		deadline := testTime(24 * time.Hour)
		item := newTestItem("item-1", "Buy milk", "home", "errand")
		item.Details = "2 liters"
		item.TelegramChatID = strPtr("12345")
		item.Deadline = &deadline

		if err := repos.Items.Save(ctx, item); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repos.Items.FindByID(ctx, "item-1")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected item, got nil")
		}
		if got.Title != "Buy milk" || got.Details != "2 liters" {
			t.Errorf("unexpected item: %+v", got)
		}
		if got.Type != model.ItemTypeTask {
			t.Errorf("Type = %q, want task", got.Type)
		}
		if len(got.Tags) != 2 || got.Tags[0] != "home" || got.Tags[1] != "errand" {
			t.Errorf("Tags = %v, want [home errand]", got.Tags)
		}
		if got.TelegramChatID == nil || *got.TelegramChatID != "12345" {
			t.Errorf("TelegramChatID = %v, want 12345", got.TelegramChatID)
		}
		if got.Deadline == nil || !got.Deadline.Equal(deadline) {
			t.Errorf("Deadline = %v, want %v", got.Deadline, deadline)
		}
		if got.ScheduledAt != nil {
			t.Errorf("ScheduledAt = %v, want nil", got.ScheduledAt)
		}
		if !got.CreatedAt.Equal(item.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, item.CreatedAt)
		}
	})

	t.Run("Item_FindMissingReturnsNil", func(t *testing.T) {
		repos := newRepos(t)
		got, err := repos.Items.FindByID(context.Background(), "missing")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("Item_ListKeepsInsertionOrderOnUpsert", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		for _, id := range []string{"a", "b", "c"} {
			if err := repos.Items.Save(ctx, newTestItem(id, "title "+id)); err != nil {
				t.Fatalf("Save(%s) failed: %v", id, err)
			}
		}
		// 既存IDの上書きは位置を変えない
		if err := repos.Items.Save(ctx, newTestItem("a", "replaced")); err != nil {
			t.Fatalf("Save(a) failed: %v", err)
		}

		items, err := repos.Items.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("len(items) = %d, want 3", len(items))
		}
		for i, want := range []string{"a", "b", "c"} {
			if items[i].ID != want {
				t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, want)
			}
		}
		if items[0].Title != "replaced" {
			t.Errorf("items[0].Title = %q, want replaced", items[0].Title)
		}
	})

	t.Run("Item_SaveRegistersTags", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		if err := repos.Items.Save(ctx, newTestItem("i1", "t", "work", "urgent")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := repos.Items.Save(ctx, newTestItem("i2", "t", "urgent", "home")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		tags, err := repos.Tags.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		var names []string
		for _, tag := range tags {
			names = append(names, tag.Name)
		}
		want := []string{"work", "urgent", "home"}
		if len(names) != len(want) {
			t.Fatalf("tags = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("tags[%d] = %q, want %q", i, names[i], want[i])
			}
		}
	})

	t.Run("Item_UpdateAppliesFn", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		if err := repos.Items.Save(ctx, newTestItem("i1", "before")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		later := testTime(time.Minute)
		got, err := repos.Items.Update(ctx, "i1", func(item *model.Item) {
			item.Title = "after"
			item.Completed = true
			item.Tags = []string{"done"}
			item.UpdatedAt = later
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got == nil || got.Title != "after" || !got.Completed {
			t.Fatalf("unexpected updated item: %+v", got)
		}

		stored, _ := repos.Items.FindByID(ctx, "i1")
		if stored.Title != "after" || !stored.Completed || !stored.UpdatedAt.Equal(later) {
			t.Errorf("stored item not updated: %+v", stored)
		}
		tag, err := repos.Tags.FindByName(ctx, "done")
		if err != nil {
			t.Fatalf("FindByName failed: %v", err)
		}
		if tag == nil {
			t.Error("expected tag 'done' to be registered by Update")
		}
	})

	t.Run("Item_UpdateMissingReturnsNil", func(t *testing.T) {
		repos := newRepos(t)
		called := false
		got, err := repos.Items.Update(context.Background(), "missing", func(*model.Item) { called = true })
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
		if called {
			t.Error("fn must not be called for a missing item")
		}
	})

	t.Run("Item_DeleteCascadesReminders", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		if err := repos.Items.Save(ctx, newTestItem("i1", "keep")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := repos.Items.Save(ctx, newTestItem("i2", "drop")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		for _, rem := range []*model.Reminder{
			{ID: "r1", ItemID: "i1", TelegramChatID: "1", ScheduledTime: testTime(time.Hour), CreatedAt: testTime(0)},
			{ID: "r2", ItemID: "i2", TelegramChatID: "1", ScheduledTime: testTime(time.Hour), CreatedAt: testTime(0)},
		} {
			if err := repos.Reminders.Save(ctx, rem); err != nil {
				t.Fatalf("Save reminder failed: %v", err)
			}
		}

		ok, err := repos.Items.Delete(ctx, "i2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if !ok {
			t.Fatal("Delete returned false for existing item")
		}

		if got, _ := repos.Items.FindByID(ctx, "i2"); got != nil {
			t.Error("item i2 still exists")
		}
		if got, _ := repos.Reminders.FindByID(ctx, "r2"); got != nil {
			t.Error("reminder r2 should be deleted with its item")
		}
		if got, _ := repos.Reminders.FindByID(ctx, "r1"); got == nil {
			t.Error("reminder r1 should remain")
		}

		ok, err = repos.Items.Delete(ctx, "i2")
		if err != nil {
			t.Fatalf("second Delete failed: %v", err)
		}
		if ok {
			t.Error("second Delete returned true")
		}
	})

	// 同じIDで別アイテムに付け替えたリマインダーは旧アイテムの削除で消えない
	t.Run("Reminder_RelinkSurvivesOldItemDelete", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		for _, item := range []*model.Item{newTestItem("a", "old"), newTestItem("b", "new")} {
			if err := repos.Items.Save(ctx, item); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}
		rem := &model.Reminder{ID: "r", ItemID: "a", TelegramChatID: "1", ScheduledTime: testTime(time.Hour), CreatedAt: testTime(0)}
		if err := repos.Reminders.Save(ctx, rem); err != nil {
			t.Fatalf("Save reminder failed: %v", err)
		}
		relinked := rem.Clone()
		relinked.ItemID = "b"
		if err := repos.Reminders.Save(ctx, relinked); err != nil {
			t.Fatalf("re-Save reminder failed: %v", err)
		}

		if _, err := repos.Items.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		got, err := repos.Reminders.FindByID(ctx, "r")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got == nil || got.ItemID != "b" {
			t.Fatalf("reminder r = %+v, want it kept and linked to b", got)
		}

		if _, err := repos.Items.Delete(ctx, "b"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if got, _ := repos.Reminders.FindByID(ctx, "r"); got != nil {
			t.Error("reminder r should be deleted with item b")
		}
	})

	t.Run("Item_ConcurrentUpdatesAreNotLost", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		if err := repos.Items.Save(ctx, newTestItem("i1", "counter")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		const workers = 8
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repos.Items.Update(ctx, "i1", func(item *model.Item) {
					item.Details += "x"
				})
				if err != nil {
					t.Errorf("Update failed: %v", err)
				}
			}()
		}
		wg.Wait()

		got, _ := repos.Items.FindByID(ctx, "i1")
		if len(got.Details) != workers {
			t.Errorf("Details = %q, want %d updates", got.Details, workers)
		}
	})

	t.Run("Tag_RegisterIsIdempotent", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		if err := repos.Tags.Register(ctx, []string{"a", "b"}, testTime(0)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if err := repos.Tags.Register(ctx, []string{"b", "c"}, testTime(time.Hour)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		tags, err := repos.Tags.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(tags) != 3 {
			t.Fatalf("len(tags) = %d, want 3", len(tags))
		}
		b, _ := repos.Tags.FindByName(ctx, "b")
		if b == nil || !b.CreatedAt.Equal(testTime(0)) {
			t.Errorf("tag b createdAt must not change: %+v", b)
		}
		if missing, _ := repos.Tags.FindByName(ctx, "zzz"); missing != nil {
			t.Errorf("expected nil for unknown tag, got %+v", missing)
		}
	})

	t.Run("Tag_DeleteOrphans", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		if err := repos.Items.Save(ctx, newTestItem("i1", "t", "used")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := repos.Tags.Register(ctx, []string{"orphan"}, testTime(0)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		n, err := repos.Tags.DeleteOrphans(ctx)
		if err != nil {
			t.Fatalf("DeleteOrphans failed: %v", err)
		}
		if n != 1 {
			t.Errorf("deleted = %d, want 1", n)
		}
		if got, _ := repos.Tags.FindByName(ctx, "used"); got == nil {
			t.Error("tag 'used' should remain")
		}
		if got, _ := repos.Tags.FindByName(ctx, "orphan"); got != nil {
			t.Error("tag 'orphan' should be deleted")
		}
	})

	t.Run("Reminder_CRUD", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		if err := repos.Items.Save(ctx, newTestItem("i1", "t")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		rem := &model.Reminder{
			ID: "r1", ItemID: "i1", TelegramChatID: "999",
			ScheduledTime: testTime(2 * time.Hour), CreatedAt: testTime(0),
		}
		if err := repos.Reminders.Save(ctx, rem); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repos.Reminders.Update(ctx, "r1", func(r *model.Reminder) { r.Sent = true })
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got == nil || !got.Sent || got.ItemID != "i1" {
			t.Fatalf("unexpected reminder: %+v", got)
		}

		list, err := repos.Reminders.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 1 || !list[0].ScheduledTime.Equal(rem.ScheduledTime) {
			t.Errorf("unexpected list: %+v", list)
		}

		ok, err := repos.Reminders.Delete(ctx, "r1")
		if err != nil || !ok {
			t.Fatalf("Delete = %v, %v", ok, err)
		}
		if got, _ := repos.Reminders.FindByID(ctx, "r1"); got != nil {
			t.Error("reminder still exists after Delete")
		}
		if got, _ := repos.Reminders.Update(ctx, "r1", func(*model.Reminder) {}); got != nil {
			t.Error("Update on deleted reminder should return nil")
		}
	})

	t.Run("Reminder_DeleteSentBefore", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		if err := repos.Items.Save(ctx, newTestItem("i1", "t")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		reminders := []*model.Reminder{
			{ID: "old-sent", ItemID: "i1", TelegramChatID: "1", ScheduledTime: testTime(-48 * time.Hour), Sent: true},
			{ID: "old-unsent", ItemID: "i1", TelegramChatID: "1", ScheduledTime: testTime(-48 * time.Hour)},
			{ID: "new-sent", ItemID: "i1", TelegramChatID: "1", ScheduledTime: testTime(time.Hour), Sent: true},
		}
		for _, rem := range reminders {
			rem.CreatedAt = testTime(-72 * time.Hour)
			if err := repos.Reminders.Save(ctx, rem); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}

		n, err := repos.Reminders.DeleteSentBefore(ctx, testTime(0))
		if err != nil {
			t.Fatalf("DeleteSentBefore failed: %v", err)
		}
		if n != 1 {
			t.Errorf("deleted = %d, want 1", n)
		}
		if got, _ := repos.Reminders.FindByID(ctx, "old-sent"); got != nil {
			t.Error("old-sent should be deleted")
		}
		for _, id := range []string{"old-unsent", "new-sent"} {
			if got, _ := repos.Reminders.FindByID(ctx, id); got == nil {
				t.Errorf("%s should remain", id)
			}
		}
	})

	t.Run("User_CreateDuplicate", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		user := &model.User{ID: "u1", Name: "Alice", Email: strPtr("alice@example.com"), CreatedAt: testTime(0), UpdatedAt: testTime(0)}
		if err := repos.Users.Create(ctx, user); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		err := repos.Users.Create(ctx, &model.User{ID: "u1", Name: "Bob", CreatedAt: testTime(0), UpdatedAt: testTime(0)})
		if !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}

		got, _ := repos.Users.FindByID(ctx, "u1")
		if got == nil || got.Name != "Alice" {
			t.Errorf("original user must be kept: %+v", got)
		}
	})

	t.Run("User_UpdateListDelete", func(t *testing.T) {
		repos := newRepos(t)
		ctx := context.Background()

		for _, id := range []string{"u1", "u2"} {
			if err := repos.Users.Create(ctx, &model.User{ID: id, Name: id, CreatedAt: testTime(0), UpdatedAt: testTime(0)}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}

		got, err := repos.Users.Update(ctx, "u1", func(u *model.User) {
			u.Timezone = strPtr("Asia/Tokyo")
			u.UpdatedAt = testTime(time.Hour)
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got.Timezone == nil || *got.Timezone != "Asia/Tokyo" {
			t.Errorf("Timezone = %v", got.Timezone)
		}

		users, err := repos.Users.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(users) != 2 || users[0].ID != "u1" || users[1].ID != "u2" {
			t.Errorf("unexpected users order: %+v", users)
		}

		ok, err := repos.Users.Delete(ctx, "u1")
		if err != nil || !ok {
			t.Fatalf("Delete = %v, %v", ok, err)
		}
		ok, err = repos.Users.Delete(ctx, "u1")
		if err != nil || ok {
			t.Errorf("second Delete = %v, %v; want false, nil", ok, err)
		}
	})
}
