package model

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/knc-neural-calculus/loom/internal/tree"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestModel loads root "Once" with children " upon a time" and " in a land".
func newTestModel(t *testing.T) *Model {
	t.Helper()
	m := New(testLogger())
	doc := tree.NewDocument()
	doc.Root.Text = "Once"
	doc.Root.Children = []*tree.Node{
		{ID: "c1", Text: " upon a time"},
		{ID: "c2", Text: " in a land"},
	}
	if err := m.SetDocument(doc); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}
	return m
}

// checkInvariants verifies single root, consistent back-references, and
// unique ids after an edit sequence.
func checkInvariants(t *testing.T, m *Model) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	roots := 0
	seen := map[string]bool{}
	for _, n := range m.order {
		if seen[n.ID] {
			t.Fatalf("duplicate id %q", n.ID)
		}
		seen[n.ID] = true

		if n.ParentID == "" {
			roots++
			if n != m.doc.Root {
				t.Fatalf("parentless node %q is not the document root", n.ID)
			}
			continue
		}
		parent, ok := m.index[n.ParentID]
		if !ok {
			t.Fatalf("node %q: parent %q not in index", n.ID, n.ParentID)
		}
		count := 0
		for _, c := range parent.Children {
			if c == n {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("node %q appears %d times in parent's children", n.ID, count)
		}
	}
	if roots != 1 {
		t.Fatalf("expected exactly one root, got %d", roots)
	}
}

func TestSetDocument_SelectsFirstInFlattenOrder(t *testing.T) {
	m := newTestModel(t)
	if sel := m.Selection(); sel != m.docRootID() {
		t.Errorf("selection = %q, want root %q", sel, m.docRootID())
	}
	if m.NodeCount() != 3 {
		t.Errorf("NodeCount = %d, want 3", m.NodeCount())
	}
}

func (m *Model) docRootID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Root.ID
}

func TestLoadScenario_BareShapesAndAutoIDs(t *testing.T) {
	m := New(testLogger())
	doc := &tree.Document{Root: &tree.Node{
		Text:     "Once",
		Children: []*tree.Node{{Text: " upon a time"}},
	}}
	if err := m.SetDocument(doc); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}

	if m.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", m.NodeCount())
	}
	root, err := m.Node(m.Selection())
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if root.Text != "Once" || len(root.ChildIDs) != 1 {
		t.Fatalf("unexpected root snapshot: %+v", root)
	}
	child, err := m.Node(root.ChildIDs[0])
	if err != nil {
		t.Fatalf("Node(child): %v", err)
	}
	if child.Text != " upon a time" {
		t.Errorf("child text = %q", child.Text)
	}
	if child.ID == "" || child.ID == root.ID {
		t.Errorf("expected distinct auto-assigned ids, got %q and %q", root.ID, child.ID)
	}
	if child.ParentID != root.ID {
		t.Errorf("child parent_id = %q, want %q", child.ParentID, root.ID)
	}
}

func TestSelect_MarksVisitedAndOpensAncestors(t *testing.T) {
	m := newTestModel(t)
	if !m.Select("c1") {
		t.Fatal("expected selection to change")
	}
	n, err := m.Node("c1")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if !n.Visited {
		t.Error("selected node not marked visited")
	}
	root, _ := m.Node(n.ParentID)
	if !root.Open {
		t.Error("ancestor not opened")
	}
	// Re-selecting the same node is a no-op.
	if m.Select("c1") {
		t.Error("expected no-op on reselect")
	}
	// Unknown ids are a no-op, not a panic.
	if m.Select("nope") {
		t.Error("expected no-op on unknown id")
	}
}

func TestSelect_FiresHooksInOrder(t *testing.T) {
	m := newTestModel(t)
	var got []string
	m.Subscribe(PreSelectionChanged, func(e Event) { got = append(got, "pre:"+e.NodeID) })
	m.Subscribe(SelectionChanged, func(e Event) { got = append(got, "post:"+e.NodeID) })

	m.Select("c2")

	if len(got) != 2 || got[0] != "pre:c2" || got[1] != "post:c2" {
		t.Fatalf("hook order = %v", got)
	}
}

func TestMoveBy_Saturates(t *testing.T) {
	m := newTestModel(t)
	m.MoveBy(1000)
	last := m.Selection()
	if last != "c2" {
		t.Errorf("saturating forward selected %q, want c2", last)
	}
	m.MoveBy(-1000)
	if sel := m.Selection(); sel != m.docRootID() {
		t.Errorf("saturating backward selected %q, want root", sel)
	}
}

func TestSelectSibling_Wraps(t *testing.T) {
	m := newTestModel(t)
	m.Select("c1")
	m.SelectSibling(1)
	if m.Selection() != "c2" {
		t.Fatalf("after +1: %q", m.Selection())
	}
	m.SelectSibling(1)
	if m.Selection() != "c1" {
		t.Fatalf("after wrap: %q", m.Selection())
	}
	m.SelectSibling(-1)
	if m.Selection() != "c2" {
		t.Fatalf("after -1: %q", m.Selection())
	}
	// Any multiple of the sibling count returns to the start.
	m.Select("c1")
	if m.SelectSibling(4) {
		t.Error("offset that is a multiple of the sibling count should be a no-op select")
	}
	if m.Selection() != "c1" {
		t.Errorf("after full cycle: %q", m.Selection())
	}
}

func TestSelectChild_Clips(t *testing.T) {
	m := newTestModel(t)
	m.SelectChild(99)
	if m.Selection() != "c2" {
		t.Errorf("clipped child select = %q, want c2", m.Selection())
	}
	m.SelectParent()
	m.SelectChild(-5)
	if m.Selection() != "c1" {
		t.Errorf("clipped child select = %q, want c1", m.Selection())
	}
}

func TestAncestryText(t *testing.T) {
	m := newTestModel(t)
	got, err := m.AncestryText("c1")
	if err != nil {
		t.Fatalf("AncestryText: %v", err)
	}
	if got != "Once upon a time" {
		t.Errorf("effective text = %q", got)
	}
}

func TestEditSequence_PreservesInvariants(t *testing.T) {
	m := newTestModel(t)

	id, err := m.CreateChild("c1", true, true)
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	checkInvariants(t, m)

	if _, err := m.CreateSibling(id, false); err != nil {
		t.Fatalf("CreateSibling: %v", err)
	}
	checkInvariants(t, m)

	if _, err := m.CreateParent("c2"); err != nil {
		t.Fatalf("CreateParent: %v", err)
	}
	checkInvariants(t, m)

	if err := m.MergeWithParent("c1"); err != nil {
		t.Fatalf("MergeWithParent: %v", err)
	}
	checkInvariants(t, m)

	if err := m.ChangeParent(id, "c2"); err != nil {
		t.Fatalf("ChangeParent: %v", err)
	}
	checkInvariants(t, m)

	if err := m.DeleteNode(id, false); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	checkInvariants(t, m)
}

func TestCreateParent_OnRootReplacesRoot(t *testing.T) {
	m := newTestModel(t)
	oldRoot := m.docRootID()
	id, err := m.CreateParent(oldRoot)
	if err != nil {
		t.Fatalf("CreateParent: %v", err)
	}
	if m.docRootID() != id {
		t.Errorf("root = %q, want new parent %q", m.docRootID(), id)
	}
	n, _ := m.Node(oldRoot)
	if n.ParentID != id {
		t.Errorf("old root parent = %q, want %q", n.ParentID, id)
	}
	checkInvariants(t, m)
}

func TestMergeWithParent_SplicesChildrenInOrder(t *testing.T) {
	m := newTestModel(t)
	a, _ := m.CreateChild("c1", false, false)
	b, _ := m.CreateChild("c1", false, false)
	if err := m.MergeWithParent("c1"); err != nil {
		t.Fatalf("MergeWithParent: %v", err)
	}

	root, _ := m.Node(m.docRootID())
	want := []string{a, b, "c2"}
	if len(root.ChildIDs) != len(want) {
		t.Fatalf("children = %v, want %v", root.ChildIDs, want)
	}
	for i := range want {
		if root.ChildIDs[i] != want[i] {
			t.Fatalf("children = %v, want %v", root.ChildIDs, want)
		}
	}
	if root.Text != "Once upon a time" {
		t.Errorf("merged text = %q", root.Text)
	}
	if m.Selection() != root.ID {
		t.Errorf("selection = %q, want parent", m.Selection())
	}
	checkInvariants(t, m)
}

func TestMergeWithParent_RootIsSilentNoop(t *testing.T) {
	m := newTestModel(t)
	before := m.NodeCount()
	if err := m.MergeWithParent(m.docRootID()); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if m.NodeCount() != before {
		t.Error("root merge mutated the tree")
	}
}

func TestMergeDeleteDuality(t *testing.T) {
	// merge_with_children must equal manual prepend + delete-with-reassignment.
	build := func() *Model {
		m := New(testLogger())
		doc := tree.NewDocument()
		doc.Root.Text = "r"
		mid := &tree.Node{ID: "mid", Text: "M", Children: []*tree.Node{
			{ID: "g1", Text: "x"},
			{ID: "g2", Text: "y"},
		}}
		doc.Root.Children = []*tree.Node{mid}
		if err := m.SetDocument(doc); err != nil {
			t.Fatalf("SetDocument: %v", err)
		}
		return m
	}

	viaMerge := build()
	if err := viaMerge.MergeWithChildren("mid"); err != nil {
		t.Fatalf("MergeWithChildren: %v", err)
	}

	viaManual := build()
	if err := viaManual.UpdateText("g1", "Mx", nil); err != nil {
		t.Fatalf("UpdateText: %v", err)
	}
	if err := viaManual.UpdateText("g2", "My", nil); err != nil {
		t.Fatalf("UpdateText: %v", err)
	}
	if err := viaManual.DeleteNode("mid", true); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	for _, id := range []string{"g1", "g2"} {
		a, errA := viaMerge.Node(id)
		b, errB := viaManual.Node(id)
		if errA != nil || errB != nil {
			t.Fatalf("lookup %s: %v %v", id, errA, errB)
		}
		if a.Text != b.Text {
			t.Errorf("%s text diverged: merge %q manual %q", id, a.Text, b.Text)
		}
		if a.ParentID != viaMerge.docRootID() || b.ParentID != viaManual.docRootID() {
			t.Errorf("%s not reassigned to the root", id)
		}
	}
	checkInvariants(t, viaMerge)
}

func TestChangeParent_Guards(t *testing.T) {
	m := newTestModel(t)
	grand, _ := m.CreateChild("c1", false, false)

	if err := m.ChangeParent(m.docRootID(), "c1"); err != ErrStructuralViolation {
		t.Errorf("reparenting root: got %v, want ErrStructuralViolation", err)
	}
	// Reparenting under one's own descendant would create a cycle.
	if err := m.ChangeParent("c1", grand); err != ErrStructuralViolation {
		t.Errorf("cycle reparent: got %v, want ErrStructuralViolation", err)
	}
	// Same parent and self are no-ops.
	if err := m.ChangeParent("c1", m.docRootID()); err != nil {
		t.Errorf("same-parent no-op: %v", err)
	}
	if err := m.ChangeParent("c1", "c1"); err != nil {
		t.Errorf("self no-op: %v", err)
	}
	checkInvariants(t, m)
}

func TestDeleteNode_SelectionRules(t *testing.T) {
	m := newTestModel(t)

	if err := m.DeleteNode(m.docRootID(), false); err != ErrStructuralViolation {
		t.Fatalf("deleting root: got %v, want ErrStructuralViolation", err)
	}

	// Deleting the last sibling selects the one now at the clipped index.
	if err := m.DeleteNode("c2", false); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if m.Selection() != "c1" {
		t.Errorf("selection = %q, want c1", m.Selection())
	}

	// Deleting the only remaining child selects the parent.
	if err := m.DeleteNode("c1", false); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if m.Selection() != m.docRootID() {
		t.Errorf("selection = %q, want root", m.Selection())
	}
	checkInvariants(t, m)
}

func TestUpdateText_SplitLaw(t *testing.T) {
	m := New(testLogger())
	doc := tree.NewDocument()
	doc.Root.Text = "The cat"
	doc.Root.Children = []*tree.Node{{ID: "d", Text: "down."}}
	if err := m.SetDocument(doc); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}

	// Trailing spaces are counted off the new text and handed to the children.
	if err := m.UpdateText(m.docRootID(), "The cat sat  ", nil); err != nil {
		t.Fatalf("UpdateText: %v", err)
	}
	root, _ := m.Node(m.docRootID())
	if root.Text != "The cat sat" {
		t.Errorf("parent text = %q", root.Text)
	}
	child, _ := m.Node("d")
	if child.Text != "  down." {
		t.Errorf("child text = %q, want two leading spaces", child.Text)
	}
	if strings.HasSuffix(root.Text, " ") {
		t.Error("parent text kept trailing spaces")
	}

	// A rewrite without trailing spaces leaves the children alone.
	if err := m.UpdateText(m.docRootID(), "The cat lay", nil); err != nil {
		t.Fatalf("UpdateText: %v", err)
	}
	child, _ = m.Node("d")
	if child.Text != "  down." {
		t.Errorf("child text = %q, want unchanged", child.Text)
	}
}

func TestUpdateText_NoChangeShortCircuits(t *testing.T) {
	m := newTestModel(t)
	fired := 0
	m.Subscribe(NodeStructureChanged, func(Event) { fired++ })

	if err := m.UpdateText("c1", " upon a time", nil); err != nil {
		t.Fatalf("UpdateText: %v", err)
	}
	if fired != 0 {
		t.Errorf("no-op update fired %d notifications", fired)
	}

	active := "shown"
	if err := m.UpdateText("c1", " upon a time", &active); err != nil {
		t.Fatalf("UpdateText: %v", err)
	}
	if fired == 0 {
		t.Error("active text change did not notify")
	}
}
