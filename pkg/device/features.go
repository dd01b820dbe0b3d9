package device

import "fmt"

// Feature identifies one remote-control feature flag.
type Feature uint16

// Feature flags.
const (
	FeatureUp Feature = iota
	FeatureDown
	FeatureLeft
	FeatureRight
	FeatureSelect
	FeatureMenu
	FeatureHome
	FeaturePlay
	FeaturePause
	FeatureNext
	FeaturePrevious
	FeatureNowPlaying
	FeaturePushUpdates
	FeaturePowerState
	FeatureWake
	FeatureVolumeSet
	FeatureVolumeGet
)

type featureInfo struct {
	feature     Feature
	name        string
	description string
}

// featureTable is the static registry of all known feature flags, used
// for help text and support reporting. Indices must be unique;
// featureNames checks this eagerly at startup.
var featureTable = []featureInfo{
	{FeatureUp, "Up", "Move selection up"},
	{FeatureDown, "Down", "Move selection down"},
	{FeatureLeft, "Left", "Move selection left"},
	{FeatureRight, "Right", "Move selection right"},
	{FeatureSelect, "Select", "Activate the current selection"},
	{FeatureMenu, "Menu", "Go back to the previous view"},
	{FeatureHome, "Home", "Return to the home screen"},
	{FeaturePlay, "Play", "Start playback"},
	{FeaturePause, "Pause", "Pause playback"},
	{FeatureNext, "Next", "Skip to the next item"},
	{FeaturePrevious, "Previous", "Skip to the previous item"},
	{FeatureNowPlaying, "NowPlaying", "Query now-playing metadata"},
	{FeaturePushUpdates, "PushUpdates", "Subscribe to now-playing pushes"},
	{FeaturePowerState, "PowerState", "Query the device power state"},
	{FeatureWake, "Wake", "Wake the device from sleep"},
	{FeatureVolumeSet, "VolumeSet", "Set the absolute volume"},
	{FeatureVolumeGet, "VolumeGet", "Query the absolute volume"},
}

var featureNames = func() map[Feature]featureInfo {
	byIndex := make(map[Feature]featureInfo, len(featureTable))
	for _, info := range featureTable {
		if dup, exists := byIndex[info.feature]; exists {
			panic(fmt.Sprintf("device: feature index %d used by %q and %q", info.feature, dup.name, info.name))
		}
		byIndex[info.feature] = info
	}
	return byIndex
}()

// FeatureName returns the name of f, or empty for an unknown feature.
func FeatureName(f Feature) string {
	return featureNames[f].name
}

// FeatureDescription returns the help text of f.
func FeatureDescription(f Feature) string {
	return featureNames[f].description
}

// AllFeatures returns every known feature in table order.
func AllFeatures() []Feature {
	out := make([]Feature, len(featureTable))
	for i, info := range featureTable {
		out[i] = info.feature
	}
	return out
}
