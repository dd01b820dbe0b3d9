package wire

// DeviceInfoPayload is the identification message both sides send when a
// connection opens. The peer does not process anything else before it.
type DeviceInfoPayload struct {
	UniqueID        string   `cbor:"1,keyasint"`
	Name            string   `cbor:"2,keyasint"`
	Model           string   `cbor:"3,keyasint,omitempty"`
	SystemBuild     string   `cbor:"4,keyasint,omitempty"`
	ProtocolVersion uint32   `cbor:"5,keyasint"`
	SupportsSystem  bool     `cbor:"6,keyasint,omitempty"`
	Capabilities    []string `cbor:"7,keyasint,omitempty"`
}

// PairingDataPayload carries one TLV block of the pair-setup conversation.
type PairingDataPayload struct {
	Data   []byte `cbor:"1,keyasint"`
	Status int32  `cbor:"2,keyasint,omitempty"`
}

// CryptoPairingPayload carries one TLV block of the pair-verify conversation.
type CryptoPairingPayload struct {
	Data []byte `cbor:"1,keyasint"`
}

// CommandPayload asks the peer to execute a remote-control command.
type CommandPayload struct {
	Command string `cbor:"1,keyasint"`
	// Pressed distinguishes button-down from button-up for commands that
	// are delivered as press events.
	Pressed bool `cbor:"2,keyasint,omitempty"`
}

// CommandResultPayload reports the outcome of a Command.
type CommandResultPayload struct {
	HandlerReturn int32  `cbor:"1,keyasint"`
	Detail        string `cbor:"2,keyasint,omitempty"`
}

// PlayingState enumerates the device playback states.
type PlayingState uint8

// Playback states.
const (
	PlayingStateIdle PlayingState = iota
	PlayingStatePlaying
	PlayingStatePaused
	PlayingStateLoading
)

func (s PlayingState) String() string {
	switch s {
	case PlayingStateIdle:
		return "idle"
	case PlayingStatePlaying:
		return "playing"
	case PlayingStatePaused:
		return "paused"
	case PlayingStateLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// SetStatePayload is the now-playing state push. It is also the response
// payload for GetState queries.
type SetStatePayload struct {
	State      PlayingState `cbor:"1,keyasint"`
	Title      string       `cbor:"2,keyasint,omitempty"`
	Artist     string       `cbor:"3,keyasint,omitempty"`
	Album      string       `cbor:"4,keyasint,omitempty"`
	App        string       `cbor:"5,keyasint,omitempty"`
	Position   float64      `cbor:"6,keyasint,omitempty"`
	Duration   float64      `cbor:"7,keyasint,omitempty"`
	Rate       float64      `cbor:"8,keyasint,omitempty"`
	ShuffleOn  bool         `cbor:"9,keyasint,omitempty"`
	RepeatMode uint8        `cbor:"10,keyasint,omitempty"`
}

// RegisterForUpdatesPayload subscribes to server pushes.
type RegisterForUpdatesPayload struct {
	Events []string `cbor:"1,keyasint"`
}

// NotificationPayload is an advisory push the caller may subscribe to.
type NotificationPayload struct {
	Name string `cbor:"1,keyasint"`
}

// VolumePayload carries an absolute volume level in [0, 1].
type VolumePayload struct {
	Level float64 `cbor:"1,keyasint"`
}

// PowerState enumerates device power states.
type PowerState uint8

// Power states.
const (
	PowerStateUnknown PowerState = iota
	PowerStateAwake
	PowerStateAsleep
)

func (s PowerState) String() string {
	switch s {
	case PowerStateAwake:
		return "awake"
	case PowerStateAsleep:
		return "asleep"
	default:
		return "unknown"
	}
}

// PowerStatePayload reports or pushes the device power state.
type PowerStatePayload struct {
	State PowerState `cbor:"1,keyasint"`
}
