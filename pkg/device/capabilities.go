package device

import (
	"context"

	"github.com/castkit/castkit/pkg/wire"
)

// Method names of the capability surfaces. Backends declare at
// registration time which of these they implement; the relays dispatch
// on these names.
const (
	MethodUp       = "Up"
	MethodDown     = "Down"
	MethodLeft     = "Left"
	MethodRight    = "Right"
	MethodSelect   = "Select"
	MethodMenu     = "Menu"
	MethodHome     = "Home"
	MethodPlay     = "Play"
	MethodPause    = "Pause"
	MethodNext     = "Next"
	MethodPrevious = "Previous"

	MethodPlaying = "Playing"

	MethodSetPushListener   = "SetPushListener"
	MethodClearPushListener = "ClearPushListener"

	MethodPowerState = "PowerState"
	MethodWake       = "Wake"

	MethodSetVolume = "SetVolume"
	MethodVolume    = "Volume"
)

// RemoteControlMethods is the closed method set of the RemoteControl
// capability.
var RemoteControlMethods = []string{
	MethodUp, MethodDown, MethodLeft, MethodRight, MethodSelect,
	MethodMenu, MethodHome, MethodPlay, MethodPause, MethodNext,
	MethodPrevious,
}

// MetadataMethods is the closed method set of the Metadata capability.
var MetadataMethods = []string{MethodPlaying}

// PushUpdatesMethods is the closed method set of the PushUpdates
// capability.
var PushUpdatesMethods = []string{MethodSetPushListener, MethodClearPushListener}

// PowerMethods is the closed method set of the Power capability.
var PowerMethods = []string{MethodPowerState, MethodWake}

// AudioMethods is the closed method set of the Audio capability.
var AudioMethods = []string{MethodSetVolume, MethodVolume}

// RemoteControl groups the navigation and playback commands.
type RemoteControl interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Left(ctx context.Context) error
	Right(ctx context.Context) error
	Select(ctx context.Context) error
	Menu(ctx context.Context) error
	Home(ctx context.Context) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
}

// Playing describes what the device is currently playing.
type Playing struct {
	State    wire.PlayingState
	Title    string
	Artist   string
	Album    string
	App      string
	Position float64
	Duration float64
}

// Metadata exposes now-playing queries.
type Metadata interface {
	Playing(ctx context.Context) (*Playing, error)
}

// PushListener receives now-playing pushes.
type PushListener func(Playing)

// PushUpdates exposes the push-update subscription. The listener handle
// has an explicit lifecycle; owners clear it on teardown.
type PushUpdates interface {
	SetPushListener(fn PushListener)
	ClearPushListener()
}

// Power exposes power state queries and wake-up.
type Power interface {
	PowerState(ctx context.Context) (wire.PowerState, error)
	Wake(ctx context.Context) error
}

// Audio exposes absolute volume control.
type Audio interface {
	SetVolume(ctx context.Context, level float64) error
	Volume(ctx context.Context) (float64, error)
}
