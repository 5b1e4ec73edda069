package cache

import "testing"

func TestBuildFingerprintKey_StableUnderReordering(t *testing.T) {
	a := map[string]interface{}{"brand": "华为", "topic": "手机"}
	b := map[string]interface{}{"topic": "手机", "brand": "华为"}

	ka := BuildFingerprintKey("analyze:", a)
	kb := BuildFingerprintKey("analyze:", b)
	if ka != kb {
		t.Fatalf("fingerprint not stable under key reordering: %s != %s", ka, kb)
	}
}

func TestBuildFingerprintKey_StableUnderWhitespaceAndNil(t *testing.T) {
	a := map[string]interface{}{"brand": "  华为  手机 ", "topic": nil}
	b := map[string]interface{}{"brand": "华为 手机", "topic": ""}

	if BuildFingerprintKey("analyze:", a) != BuildFingerprintKey("analyze:", b) {
		t.Fatal("fingerprint not stable under whitespace/nil normalization")
	}
}

func TestBuildFingerprintKey_PrefixDistinguishes(t *testing.T) {
	data := map[string]interface{}{"x": "y"}
	if BuildFingerprintKey("analyze:", data) == BuildFingerprintKey("memory:", data) {
		t.Fatal("different prefixes must not collide")
	}
}

func TestBuildFingerprintKey_IdenticalTagListsMatch(t *testing.T) {
	a := map[string]interface{}{"tags": []interface{}{"a", "b", "c"}}
	b := map[string]interface{}{"tags": []interface{}{"a", "b", "c"}}
	if BuildFingerprintKey("memory:", a) != BuildFingerprintKey("memory:", b) {
		t.Fatal("identical tag slices must fingerprint identically")
	}
}
