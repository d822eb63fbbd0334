package model

import (
	"testing"

	"github.com/knc-neural-calculus/loom/internal/tree"
)

// chapterFixture builds root -> A -> B -> C.
func chapterFixture(t *testing.T) *Model {
	t.Helper()
	m := New(testLogger())
	doc := tree.NewDocument()
	doc.Root.Text = "root"
	doc.Root.Children = []*tree.Node{
		{ID: "A", Text: "a", Children: []*tree.Node{
			{ID: "B", Text: "b", Children: []*tree.Node{
				{ID: "C", Text: "c"},
			}},
		}},
	}
	if err := m.SetDocument(doc); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}
	return m
}

func TestChapterOf_InheritsFromNearestAncestor(t *testing.T) {
	m := chapterFixture(t)
	chID, err := m.CreateChapter("A", "Act One")
	if err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}

	for _, id := range []string{"A", "B", "C"} {
		ch, ok, err := m.ChapterOf(id)
		if err != nil || !ok {
			t.Fatalf("ChapterOf(%s): ok=%v err=%v", id, ok, err)
		}
		if ch.ID != chID {
			t.Errorf("ChapterOf(%s) = %q, want %q", id, ch.ID, chID)
		}
	}

	if _, ok, err := m.ChapterOf(m.docRootID()); err != nil || ok {
		t.Errorf("root should have no chapter, ok=%v err=%v", ok, err)
	}
}

func TestCreateChapter_ReplacesExisting(t *testing.T) {
	m := chapterFixture(t)
	first, _ := m.CreateChapter("A", "Draft")
	second, err := m.CreateChapter("A", "Final")
	if err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh chapter id")
	}
	if ch, ok, _ := m.ChapterOf("A"); !ok || ch.ID != second || ch.Title != "Final" {
		t.Errorf("chapter after replace = %+v ok=%v", ch, ok)
	}
	if _, _, err := m.BuildChapterTrees(); err != nil {
		t.Fatalf("BuildChapterTrees: %v", err)
	}
}

func TestCreateChapter_EmptyTitleClears(t *testing.T) {
	m := chapterFixture(t)
	m.CreateChapter("A", "Act One")
	id, err := m.CreateChapter("A", "")
	if err != nil {
		t.Fatalf("CreateChapter: %v", err)
	}
	if id != "" {
		t.Errorf("clearing returned id %q", id)
	}
	if _, ok, _ := m.ChapterOf("A"); ok {
		t.Error("chapter survived clearing")
	}
}

func TestDeleteChapter(t *testing.T) {
	m := chapterFixture(t)
	id, _ := m.CreateChapter("B", "Act Two")
	if err := m.DeleteChapter(id); err != nil {
		t.Fatalf("DeleteChapter: %v", err)
	}
	if _, ok, _ := m.ChapterOf("C"); ok {
		t.Error("descendant still inherits deleted chapter")
	}
	if err := m.DeleteChapter(id); err != ErrNotFound {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestRemoveAllChapters(t *testing.T) {
	m := chapterFixture(t)
	m.CreateChapter("A", "Act One")
	m.CreateChapter("C", "Act Three")
	if err := m.RemoveAllChapters(""); err != nil {
		t.Fatalf("RemoveAllChapters: %v", err)
	}
	for _, id := range []string{"A", "B", "C"} {
		if _, ok, _ := m.ChapterOf(id); ok {
			t.Errorf("node %s still has a chapter", id)
		}
	}
}

func TestBuildChapterTrees_NestsAndFlattens(t *testing.T) {
	m := chapterFixture(t)
	outer, _ := m.CreateChapter("A", "Act One")
	inner, _ := m.CreateChapter("C", "Scene")

	forest, flat, err := m.BuildChapterTrees()
	if err != nil {
		t.Fatalf("BuildChapterTrees: %v", err)
	}
	if len(forest) != 1 {
		t.Fatalf("forest size = %d, want 1", len(forest))
	}
	if forest[0].ID != outer {
		t.Errorf("outer chapter = %q, want %q", forest[0].ID, outer)
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].ID != inner {
		t.Fatalf("inner nesting wrong: %+v", forest[0].Children)
	}
	if len(flat) != 2 {
		t.Errorf("flat view size = %d, want 2", len(flat))
	}
	if flat[inner].Chapter.Title != "Scene" {
		t.Errorf("flat[inner] = %+v", flat[inner])
	}
}

func TestDeleteNode_DropsSubtreeChapters(t *testing.T) {
	m := chapterFixture(t)
	m.CreateChapter("B", "Act Two")
	if err := m.DeleteNode("A", false); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	forest, flat, err := m.BuildChapterTrees()
	if err != nil {
		t.Fatalf("BuildChapterTrees: %v", err)
	}
	if len(forest) != 0 || len(flat) != 0 {
		t.Errorf("registry kept chapters for deleted nodes: %+v", flat)
	}
}

func TestImportSubtree_MergesReachableChapters(t *testing.T) {
	m := chapterFixture(t)
	m.Select("C")

	sub := &tree.Node{Text: " far away", Children: []*tree.Node{
		{Text: " lived a king", ChapterID: "imported-ch"},
	}}
	chapters := map[string]*tree.Chapter{
		"imported-ch": {ID: "imported-ch", RootID: "ignored", Title: "The King"},
		"unreachable": {ID: "unreachable", RootID: "nowhere", Title: "Dropped"},
	}
	if err := m.ImportSubtree(sub, chapters); err != nil {
		t.Fatalf("ImportSubtree: %v", err)
	}

	c, err := m.Node("C")
	if err != nil {
		t.Fatalf("Node(C): %v", err)
	}
	if len(c.ChildIDs) != 1 {
		t.Fatalf("imported root not attached under selection: %+v", c)
	}

	_, flat, err := m.BuildChapterTrees()
	if err != nil {
		t.Fatalf("BuildChapterTrees: %v", err)
	}
	if _, ok := flat["imported-ch"]; !ok {
		t.Error("reachable chapter not merged")
	}
	if _, ok := flat["unreachable"]; ok {
		t.Error("unreachable chapter merged")
	}
	checkInvariants(t, m)
}

func TestImportSubtree_RemapsCollidingIDs(t *testing.T) {
	m := chapterFixture(t)
	m.Select("C")

	before, err := m.Node("A")
	if err != nil {
		t.Fatalf("Node(A): %v", err)
	}

	// The import reuses an existing id and repeats one of its own.
	sub := &tree.Node{ID: "A", Text: " far away", Children: []*tree.Node{
		{ID: "dup", Text: " lived a king"},
		{ID: "dup", Text: " lived a queen"},
	}}
	if err := m.ImportSubtree(sub, nil); err != nil {
		t.Fatalf("ImportSubtree: %v", err)
	}

	if sub.ID == "A" {
		t.Error("imported root kept a taken id")
	}
	if sub.Children[0].ID == sub.Children[1].ID {
		t.Error("duplicate ids within the import survived")
	}

	after, err := m.Node("A")
	if err != nil {
		t.Fatalf("Node(A) after import: %v", err)
	}
	if after.Text != before.Text || after.ParentID != before.ParentID {
		t.Errorf("existing node disturbed: %+v", after)
	}

	imported, err := m.Node(sub.ID)
	if err != nil {
		t.Fatalf("Node(%s): %v", sub.ID, err)
	}
	if imported.ParentID != "C" {
		t.Errorf("imported root parent = %q, want C", imported.ParentID)
	}
	checkInvariants(t, m)
}
