package history

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"feedrelay/internal/model"
)

func entry(i int) model.FeedEntry {
	return model.FeedEntry{
		Link:   fmt.Sprintf("https://bugs.example.com/browse/MC-%d", i),
		Title:  fmt.Sprintf("commented on MC-%d", i),
		Author: "Alice",
	}
}

func TestEvictsOldestWhenFull(t *testing.T) {
	h := New(DefaultCapacity)
	for i := 1; i <= 201; i++ {
		h.Record(entry(i))
	}

	if diff := cmp.Diff(200, h.Len()); diff != "" {
		t.Errorf("Len() mismatch (-want +got):\n%s", diff)
	}
	if h.Seen(entry(1)) {
		t.Error("first entry should have been evicted")
	}
	for i := 2; i <= 201; i++ {
		if !h.Seen(entry(i)) {
			t.Fatalf("entry %d should be resident", i)
		}
	}
}

func TestValueEquality(t *testing.T) {
	h := New(3)
	h.Record(model.FeedEntry{Link: "l", Title: "t", Author: "a"})

	tests := []struct {
		name  string
		entry model.FeedEntry
		want  bool
	}{
		{name: "same values", entry: model.FeedEntry{Link: "l", Title: "t", Author: "a"}, want: true},
		{name: "different link", entry: model.FeedEntry{Link: "l2", Title: "t", Author: "a"}, want: false},
		{name: "different title", entry: model.FeedEntry{Link: "l", Title: "t2", Author: "a"}, want: false},
		{name: "different author", entry: model.FeedEntry{Link: "l", Title: "t", Author: "b"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, h.Seen(tt.entry)); diff != "" {
				t.Errorf("Seen() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecordDuplicateKeepsSize(t *testing.T) {
	h := New(2)
	h.Record(entry(1))
	h.Record(entry(1))
	h.Record(entry(2))

	if diff := cmp.Diff(2, h.Len()); diff != "" {
		t.Errorf("Len() mismatch (-want +got):\n%s", diff)
	}
	if !h.Seen(entry(1)) || !h.Seen(entry(2)) {
		t.Error("both entries should be resident")
	}
}

func TestCheckAndRecord(t *testing.T) {
	h := New(2)
	got := []bool{
		h.CheckAndRecord(entry(1)),
		h.CheckAndRecord(entry(1)),
		h.CheckAndRecord(entry(2)),
		h.CheckAndRecord(entry(3)),
		h.CheckAndRecord(entry(1)),
	}
	want := []bool{true, false, true, true, true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CheckAndRecord() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewDefaultsCapacity(t *testing.T) {
	if diff := cmp.Diff(DefaultCapacity, New(0).Cap()); diff != "" {
		t.Errorf("Cap() mismatch (-want +got):\n%s", diff)
	}
}
