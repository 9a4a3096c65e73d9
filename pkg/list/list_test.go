package list_test

import (
	"testing"

	"hashdb/pkg/list"
)

// collect returns the list's values from head to tail.
func collect(l *list.List[int64]) []int64 {
	var out []int64
	l.Map(func(link *list.Link[int64]) {
		out = append(out, link.GetValue())
	})
	return out
}

func assertOrder(t *testing.T, l *list.List[int64], want []int64) {
	t.Helper()
	got := collect(l)
	if len(got) != len(want) {
		t.Fatalf("expected list %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected list %v, got %v", want, got)
		}
	}
}

func TestList(t *testing.T) {
	t.Run("PushOrder", testPushOrder)
	t.Run("PopSelf", testPopSelf)
	t.Run("Find", testFind)
}

func testPushOrder(t *testing.T) {
	t.Parallel()
	l := list.NewList[int64]()
	if l.PeekHead() != nil || l.PeekTail() != nil {
		t.Fatal("new list should be empty")
	}
	l.PushTail(2)
	l.PushHead(1)
	l.PushTail(3)
	assertOrder(t, l, []int64{1, 2, 3})
	if l.Size() != 3 {
		t.Fatalf("expected size 3, got %d", l.Size())
	}
}

func testPopSelf(t *testing.T) {
	t.Parallel()
	l := list.NewList[int64]()
	links := make([]*list.Link[int64], 0, 4)
	for i := int64(0); i < 4; i++ {
		links = append(links, l.PushTail(i))
	}

	// Middle, head, tail, then the only remaining link.
	links[2].PopSelf()
	assertOrder(t, l, []int64{0, 1, 3})
	links[0].PopSelf()
	assertOrder(t, l, []int64{1, 3})
	links[3].PopSelf()
	assertOrder(t, l, []int64{1})
	links[1].PopSelf()
	if l.PeekHead() != nil || l.PeekTail() != nil || l.Size() != 0 {
		t.Fatal("list should be empty after popping every link")
	}
	// Popping a detached link is a no-op.
	links[1].PopSelf()
	if l.Size() != 0 {
		t.Fatal("popping a detached link should not change the list")
	}
}

func testFind(t *testing.T) {
	t.Parallel()
	l := list.NewList[int64]()
	for i := int64(0); i < 5; i++ {
		l.PushTail(i * 10)
	}
	link := l.Find(func(link *list.Link[int64]) bool {
		return link.GetValue() == 30
	})
	if link == nil || link.GetValue() != 30 {
		t.Fatal("expected to find link with value 30")
	}
	missing := l.Find(func(link *list.Link[int64]) bool {
		return link.GetValue() == 31
	})
	if missing != nil {
		t.Fatal("expected Find to return nil for a missing value")
	}
}
