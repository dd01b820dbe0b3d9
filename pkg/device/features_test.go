package device

import "testing"

func TestFeatureTableUnique(t *testing.T) {
	seen := make(map[Feature]string, len(featureTable))
	for _, info := range featureTable {
		if prev, dup := seen[info.feature]; dup {
			t.Errorf("feature index %d used by %q and %q", info.feature, prev, info.name)
		}
		seen[info.feature] = info.name
	}
}

func TestFeatureNames(t *testing.T) {
	for _, f := range AllFeatures() {
		if FeatureName(f) == "" {
			t.Errorf("feature %d has no name", f)
		}
		if FeatureDescription(f) == "" {
			t.Errorf("feature %q has no description", FeatureName(f))
		}
	}
	if FeatureName(Feature(9999)) != "" {
		t.Error("unknown feature has a name")
	}
}
