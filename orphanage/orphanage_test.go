package orphanage

import "testing"

func TestAddAndGetOrphanFIFO(t *testing.T) {
	o := New()
	o.Add("node1", "e1", []string{"g1"})
	o.Add("node2", "e2", []string{"g2"})

	n, ok := o.GetOrphan()
	if !ok || n != "node1" {
		t.Fatalf("expected node1 first (FIFO), got %v ok=%v", n, ok)
	}
	n, ok = o.GetOrphan()
	if !ok || n != "node2" {
		t.Fatalf("expected node2 second, got %v ok=%v", n, ok)
	}
	if _, ok := o.GetOrphan(); ok {
		t.Fatalf("expected empty orphanage after draining")
	}
}

func TestParentIsMissingAndRegisterParent(t *testing.T) {
	o := New()
	o.Add("node1", "e1", []string{"g1"})

	if !o.ParentIsMissing("g1") {
		t.Fatalf("g1 should be missing before registration")
	}
	o.RegisterParent("g1")
	if o.ParentIsMissing("g1") {
		t.Fatalf("g1 should no longer be missing after RegisterParent")
	}
}

func TestIsOrphan(t *testing.T) {
	o := New()
	o.Add("node1", "e1", []string{"g1"})
	if !o.IsOrphan("e1") {
		t.Fatalf("e1 should be reported as an orphan while queued")
	}
	o.GetOrphan()
	if o.IsOrphan("e1") {
		t.Fatalf("e1 should no longer be an orphan once popped")
	}
}

func TestLen(t *testing.T) {
	o := New()
	if o.Len() != 0 {
		t.Fatalf("new orphanage should be empty")
	}
	o.Add("node1", "", nil)
	o.Add("node2", "", nil)
	if o.Len() != 2 {
		t.Fatalf("expected Len()==2, got %d", o.Len())
	}
}

func TestReset(t *testing.T) {
	o := New()
	o.Add("node1", "e1", []string{"g1"})
	o.Reset()
	if o.Len() != 0 {
		t.Fatalf("Reset should empty the queue")
	}
	if o.IsOrphan("e1") {
		t.Fatalf("Reset should clear orphan ID tracking")
	}
	if o.ParentIsMissing("g1") {
		t.Fatalf("Reset should clear missing-parent tracking")
	}
}

func TestAddWithNoID(t *testing.T) {
	o := New()
	o.Add("anon", "", []string{"g1"})
	if o.IsOrphan("") {
		t.Fatalf("an empty ownID should never be tracked as an orphan ID")
	}
	n, ok := o.GetOrphan()
	if !ok || n != "anon" {
		t.Fatalf("expected to retrieve the anonymous orphan, got %v ok=%v", n, ok)
	}
}
