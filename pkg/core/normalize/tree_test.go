package normalize

import (
	"testing"
)

func TestFindBlockWithKeyPicksSiblingsDeterministically(t *testing.T) {
	root := map[string]interface{}{
		"ZZZBLOCK": map[string]interface{}{"DSPACCNAME": "from-zzz"},
		"AAABLOCK": map[string]interface{}{"DSPACCNAME": "from-aaa"},
	}

	// Map iteration order is randomized, so repeat to catch a stray pick.
	for i := 0; i < 50; i++ {
		block := findBlockWithKey(root, "DSPACCNAME")
		if block == nil {
			t.Fatal("block not found")
		}
		if got := block["DSPACCNAME"]; got != "from-aaa" {
			t.Fatalf("iteration %d picked %v, want the first sibling in key order", i, got)
		}
	}
}

func TestFindBlockWithKeyPicksFirstListElement(t *testing.T) {
	root := map[string]interface{}{
		"ITEMS": []interface{}{
			map[string]interface{}{"DSPACCNAME": "first"},
			map[string]interface{}{"DSPACCNAME": "second"},
		},
	}

	block := findBlockWithKey(root, "DSPACCNAME")
	if block == nil || block["DSPACCNAME"] != "first" {
		t.Fatalf("got %v, want the first list element", block)
	}
}

func TestFindBlockWithKeyMissing(t *testing.T) {
	root := map[string]interface{}{
		"BLOCK": map[string]interface{}{"OTHER": "x"},
	}
	if block := findBlockWithKey(root, "DSPACCNAME"); block != nil {
		t.Fatalf("got %v, want nil for absent key", block)
	}
}
