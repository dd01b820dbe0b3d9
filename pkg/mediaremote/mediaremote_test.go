package mediaremote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/castkit/castkit/pkg/device"
	"github.com/castkit/castkit/pkg/relay"
	"github.com/castkit/castkit/pkg/session"
	"github.com/castkit/castkit/pkg/wire"
)

// connectedBackend wires a backend to a scripted device through a
// facade, mirroring how callers consume this package.
func connectedBackend(t *testing.T) (*device.Facade, *session.TestDevice) {
	t.Helper()

	testDevice, err := session.NewTestDevice(session.TestDeviceConfig{
		DeviceID: "device-1",
		Name:     "Bedroom",
		Model:    "Box 4K",
		PIN:      "1234",
	})
	if err != nil {
		t.Fatalf("NewTestDevice() error = %v", err)
	}
	clientEnd, deviceEnd := net.Pipe()
	testDevice.Serve(deviceEnd)

	_, descriptor, err := Setup(Config{
		NetConn:  clientEnd,
		ClientID: "client-1",
		Name:     "castkit",
		Timeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	facade, err := device.New(device.Config{Priority: []relay.Protocol{Protocol}})
	if err != nil {
		t.Fatalf("device.New() error = %v", err)
	}
	if err := facade.AddProtocol(descriptor); err != nil {
		t.Fatalf("AddProtocol() error = %v", err)
	}
	if err := facade.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	t.Cleanup(func() {
		<-facade.Close()
		testDevice.Close()
	})
	return facade, testDevice
}

func TestCommands(t *testing.T) {
	facade, testDevice := connectedBackend(t)

	remote, err := facade.Remote().Resolve(device.MethodMenu)
	if err != nil {
		t.Fatalf("Resolve(Menu) error = %v", err)
	}
	if err := remote.Menu(context.Background()); err != nil {
		t.Fatalf("Menu() error = %v", err)
	}
	if err := remote.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	got := testDevice.Commands()
	want := []string{"menu", "nextitem"}
	if len(got) != len(want) {
		t.Fatalf("device commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("device commands = %v, want %v", got, want)
		}
	}
}

func TestPlaying(t *testing.T) {
	facade, _ := connectedBackend(t)

	metadata, err := facade.Metadata().Resolve(device.MethodPlaying)
	if err != nil {
		t.Fatalf("Resolve(Playing) error = %v", err)
	}
	playing, err := metadata.Playing(context.Background())
	if err != nil {
		t.Fatalf("Playing() error = %v", err)
	}
	if playing.Title != "Test Title" || playing.State != wire.PlayingStatePlaying {
		t.Errorf("Playing() = %+v, want Test Title / Playing", playing)
	}
}

func TestPushListener(t *testing.T) {
	facade, testDevice := connectedBackend(t)

	push, err := facade.Push().Resolve(device.MethodSetPushListener)
	if err != nil {
		t.Fatalf("Resolve(SetPushListener) error = %v", err)
	}

	updates := make(chan device.Playing, 1)
	push.SetPushListener(func(p device.Playing) { updates <- p })

	if err := testDevice.PushState(wire.SetStatePayload{
		State: wire.PlayingStatePaused,
		Title: "Pushed Title",
	}); err != nil {
		t.Fatalf("PushState() error = %v", err)
	}

	select {
	case p := <-updates:
		if p.Title != "Pushed Title" || p.State != wire.PlayingStatePaused {
			t.Errorf("push = %+v, want Pushed Title / Paused", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("push update never arrived")
	}

	// After clearing, pushes are dropped.
	push.ClearPushListener()
	if err := testDevice.PushState(wire.SetStatePayload{Title: "Ignored"}); err != nil {
		t.Fatalf("PushState() error = %v", err)
	}
	select {
	case p := <-updates:
		t.Errorf("cleared listener still received %+v", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestVolume(t *testing.T) {
	facade, testDevice := connectedBackend(t)

	audio, err := facade.Audio().Resolve(device.MethodSetVolume)
	if err != nil {
		t.Fatalf("Resolve(SetVolume) error = %v", err)
	}

	if _, err := audio.Volume(context.Background()); !errors.Is(err, ErrVolumeUnknown) {
		t.Errorf("Volume() before any level error = %v, want ErrVolumeUnknown", err)
	}

	if err := audio.SetVolume(context.Background(), 0.3); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if got := testDevice.Volume(); got != 0.3 {
		t.Errorf("device volume = %v, want 0.3", got)
	}
	if got, err := audio.Volume(context.Background()); err != nil || got != 0.3 {
		t.Errorf("Volume() = %v, %v, want 0.3", got, err)
	}

	if err := audio.SetVolume(context.Background(), 1.5); err == nil {
		t.Error("SetVolume(1.5) out of range succeeded")
	}
}

func TestPower(t *testing.T) {
	facade, testDevice := connectedBackend(t)

	power, err := facade.Power().Resolve(device.MethodPowerState)
	if err != nil {
		t.Fatalf("Resolve(PowerState) error = %v", err)
	}
	state, err := power.PowerState(context.Background())
	if err != nil {
		t.Fatalf("PowerState() error = %v", err)
	}
	if state != wire.PowerStateAwake {
		t.Errorf("PowerState() = %v, want Awake", state)
	}

	if err := power.Wake(context.Background()); err != nil {
		t.Fatalf("Wake() error = %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		cmds := testDevice.Commands()
		if len(cmds) > 0 && cmds[len(cmds)-1] == "wake" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("wake never reached the device")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDeviceInfo(t *testing.T) {
	facade, _ := connectedBackend(t)

	info := facade.DeviceInfo()
	if info["identifier"] != "device-1" || info["name"] != "Bedroom" || info["model"] != "Box 4K" {
		t.Errorf("DeviceInfo() = %v, want device-1 / Bedroom / Box 4K", info)
	}
}

func TestSupportsFeatures(t *testing.T) {
	facade, _ := connectedBackend(t)

	for _, feature := range device.AllFeatures() {
		if !facade.Supports(feature) {
			t.Errorf("Supports(%s) = false, want true", device.FeatureName(feature))
		}
	}
}
