package session

import (
	"testing"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

func newTestSession() *Session {
	return New("sess-1", model.DiagramTreeMap, "Topic", &diagram.Spec{Topic: "Topic"}, nil)
}

func addNode(t *testing.T, s *Session, tabKey, id, text, mode string) *model.CandidateNode {
	t.Helper()
	n := &model.CandidateNode{ID: id, Text: text, Mode: mode, SourceLLM: "llm-a"}
	if err := s.AddNode(tabKey, n); err != nil {
		t.Fatalf("AddNode(%s, %s): %v", tabKey, id, err)
	}
	return n
}

func TestInitStaticTabsIdempotent(t *testing.T) {
	s := newTestSession()
	s.InitStaticTabs([]string{"dimensions"})
	addNode(t, s, "dimensions", "n1", "Vehicle type", "dimensions")

	// preload 已填充内容后再次初始化不得清空
	s.InitStaticTabs([]string{"dimensions"})

	tab, ok := s.Tab("dimensions")
	if !ok {
		t.Fatal("dimensions tab missing")
	}
	if len(tab.Nodes) != 1 {
		t.Errorf("expected 1 preserved node, got %d", len(tab.Nodes))
	}
}

func TestInitDynamicTabsReplacesPriorDynamic(t *testing.T) {
	s := newTestSession()
	s.InitStaticTabs([]string{"dimensions", "categories"})
	s.Lock("dimensions")
	s.Lock("categories")

	first := s.InitDynamicTabs([]string{"SUV", "Sedan"})
	if len(first) != 2 {
		t.Fatalf("expected 2 dynamic tabs, got %d", len(first))
	}
	if s.CurrentTabKey() != first[0].Key {
		t.Errorf("currentTab = %q, want first dynamic tab", s.CurrentTabKey())
	}

	second := s.InitDynamicTabs([]string{"Truck"})
	tabs := s.Tabs()
	if len(tabs) != 3 { // 2 locked static + 1 new dynamic
		t.Fatalf("expected 3 tabs after re-fanout, got %d", len(tabs))
	}
	for _, old := range first {
		if _, ok := s.Tab(old.Key); ok {
			t.Errorf("stale dynamic tab %q survived re-fanout", old.Key)
		}
	}
	if second[0].Label != "Truck" || second[0].Mode != "Truck" {
		t.Errorf("dynamic tab label/mode = %q/%q", second[0].Label, second[0].Mode)
	}
	if !tabs[0].Locked || !tabs[1].Locked {
		t.Error("locked static tabs must survive fan-out")
	}
}

func TestToggleSelectSingleSelect(t *testing.T) {
	s := newTestSession()
	s.InitStaticTabs([]string{"dimensions"})
	addNode(t, s, "dimensions", "d1", "Vehicle type", "dimensions")
	addNode(t, s, "dimensions", "d2", "Drive train", "dimensions")

	if on, _, err := s.ToggleSelect("d1", true); err != nil || !on {
		t.Fatalf("select d1: on=%v err=%v", on, err)
	}
	if on, _, err := s.ToggleSelect("d2", true); err != nil || !on {
		t.Fatalf("select d2: on=%v err=%v", on, err)
	}

	tab, _ := s.Tab("dimensions")
	if tab.SelectionCount() != 1 {
		t.Errorf("single-select tab has %d selections, want 1", tab.SelectionCount())
	}
	if !tab.IsSelected("d2") || tab.IsSelected("d1") {
		t.Error("latest selection must win in single-select mode")
	}
	t.Logf("✅ single-select keeps at most one id selected")
}

func TestToggleSelectLockedTabRejected(t *testing.T) {
	s := newTestSession()
	s.InitStaticTabs([]string{"dimensions"})
	addNode(t, s, "dimensions", "d1", "Vehicle type", "dimensions")

	if _, _, err := s.ToggleSelect("d1", true); err != nil {
		t.Fatalf("initial select: %v", err)
	}
	s.Lock("dimensions")

	before := mustTab(t, s, "dimensions").SelectedIDs()
	for i := 0; i < 3; i++ {
		if _, _, err := s.ToggleSelect("d1", true); err != ErrTabLocked {
			t.Fatalf("toggle on locked tab: err=%v, want ErrTabLocked", err)
		}
	}
	after := mustTab(t, s, "dimensions").SelectedIDs()
	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("selection changed on locked tab: %v -> %v", before, after)
	}
}

func TestSwitchTabDesyncRepair(t *testing.T) {
	s := newTestSession()
	s.InitStaticTabs([]string{"dimensions", "categories"})

	// 常规：同名切换是幂等 no-op
	if _, changed, err := s.SwitchTab("dimensions", 0, false); err != nil || changed {
		t.Fatalf("same-tab switch should be no-op, changed=%v err=%v", changed, err)
	}

	// 失步自愈：force 时允许重新切入当前页签
	if _, changed, err := s.SwitchTab("dimensions", 0, true); err != nil || !changed {
		t.Fatalf("forced same-tab switch should re-enter, changed=%v err=%v", changed, err)
	}
}

func TestSwitchTabSavesScroll(t *testing.T) {
	s := newTestSession()
	s.InitStaticTabs([]string{"dimensions", "categories"})

	if _, _, err := s.SwitchTab("categories", 420, false); err != nil {
		t.Fatal(err)
	}
	dims := mustTab(t, s, "dimensions")
	if dims.ScrollOffset != 420 {
		t.Errorf("previous tab scroll = %d, want 420", dims.ScrollOffset)
	}
}

func TestGuardsGenerationMonotone(t *testing.T) {
	var g Guards
	prev := g.Generation()
	for i := 0; i < 5; i++ {
		next := g.AdvanceGeneration()
		if next <= prev {
			t.Fatalf("generation not monotone: %d -> %d", prev, next)
		}
		prev = next
	}
}

func TestGuardsLoadingCAS(t *testing.T) {
	var g Guards
	if !g.BeginLoading() {
		t.Fatal("first BeginLoading should succeed")
	}
	if g.BeginLoading() {
		t.Fatal("second BeginLoading must fail while loading")
	}
	g.EndLoading()
	if !g.BeginLoading() {
		t.Fatal("BeginLoading should succeed after EndLoading")
	}
}

func TestStoreReuseAndDestroy(t *testing.T) {
	store := NewStore()
	a, created := store.GetOrCreate("s1", func() *Session { return newTestSession() })
	if !created {
		t.Fatal("expected creation")
	}
	b, created := store.GetOrCreate("s1", func() *Session { return newTestSession() })
	if created || a != b {
		t.Fatal("expected reuse of live session")
	}
	store.Destroy("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatal("session should be gone after Destroy")
	}
}

func mustTab(t *testing.T, s *Session, key string) *Tab {
	t.Helper()
	tab, ok := s.Tab(key)
	if !ok {
		t.Fatalf("tab %q missing", key)
	}
	return tab
}
