package item

import (
	"net/url"
	"testing"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

func filterFixture() []*model.Item {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*model.Item{
		{ID: "1", Type: model.ItemTypeTask, Title: "Write report", Details: "quarterly", Tags: []string{"work"}, CreatedAt: base},
		{ID: "2", Type: model.ItemTypeReminder, Title: "Call mom", Details: "", Tags: []string{"family"}, Completed: true, CreatedAt: base.Add(time.Hour)},
		{ID: "3", Type: model.ItemTypeTask, Title: "Groceries", Details: "Milk and REPORT paper", Tags: []string{"home", "work"}, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func ids(items []*model.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name   string
		filter model.ItemFilter
		want   []string
	}{
		{"no filter", model.ItemFilter{}, []string{"1", "2", "3"}},
		{"type task", model.ItemFilter{Type: model.ItemTypeTask}, []string{"1", "3"}},
		{"type reminder", model.ItemFilter{Type: model.ItemTypeReminder}, []string{"2"}},
		{"unknown type", model.ItemFilter{Type: "note"}, []string{}},
		{"tag lower", model.ItemFilter{Tag: "work"}, []string{"1", "3"}},
		{"tag mixed case", model.ItemFilter{Tag: "Work"}, []string{"1", "3"}},
		{"search title or details", model.ItemFilter{Search: "report"}, []string{"1", "3"}},
		{"search case-insensitive", model.ItemFilter{Search: "MOM"}, []string{"2"}},
		{"completed true", model.ItemFilter{Completed: &yes}, []string{"2"}},
		{"completed false", model.ItemFilter{Completed: &no}, []string{"1", "3"}},
		{"and combined", model.ItemFilter{Tag: "work", Search: "milk"}, []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(filterFixture(), tt.filter))
			if len(got) != len(tt.want) {
				t.Fatalf("Filter = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Filter[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFilterFromQuery(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		wantCompleted *bool
		wantTag       string
	}{
		{"absent completed", "tag=Work", nil, "Work"},
		{"true", "completed=true", ptrBool(true), ""},
		{"TRUE uppercase", "completed=TRUE", ptrBool(true), ""},
		{"other value is false", "completed=yes", ptrBool(false), ""},
		{"empty value is false", "completed=", ptrBool(false), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}
			f := FilterFromQuery(q)
			if f.Tag != tt.wantTag {
				t.Errorf("Tag = %q, want %q", f.Tag, tt.wantTag)
			}
			switch {
			case tt.wantCompleted == nil && f.Completed != nil:
				t.Errorf("Completed = %v, want nil", *f.Completed)
			case tt.wantCompleted != nil && (f.Completed == nil || *f.Completed != *tt.wantCompleted):
				t.Errorf("Completed = %v, want %v", f.Completed, *tt.wantCompleted)
			}
		})
	}
}

func TestSortAgenda(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	early, late := base.Add(time.Hour), base.Add(48*time.Hour)

	items := []*model.Item{
		{ID: "no-due-old", Type: model.ItemTypeTask, CreatedAt: base},
		{ID: "late-task", Type: model.ItemTypeTask, Deadline: &late, CreatedAt: base},
		{ID: "no-due-new", Type: model.ItemTypeTask, CreatedAt: base.Add(time.Minute)},
		{ID: "early-reminder", Type: model.ItemTypeReminder, ScheduledAt: &early, CreatedAt: base.Add(time.Hour)},
	}
	// 先頭に作成日時の新しいものを置き、期日なし同士の並びを検証する
	items[0], items[2] = items[2], items[0]

	SortAgenda(items)

	want := []string{"early-reminder", "late-task", "no-due-old", "no-due-new"}
	got := ids(items)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortAgenda = %v, want %v", got, want)
		}
	}
}

func ptrBool(b bool) *bool { return &b }
