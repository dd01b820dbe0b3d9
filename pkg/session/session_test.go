package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/castkit/castkit/pkg/handshake"
	"github.com/castkit/castkit/pkg/varint"
	"github.com/castkit/castkit/pkg/wire"
)

const testPIN = "1234"

// newPair creates a session wired to a TestDevice over an in-memory
// connection. The session is not started.
func newPair(t *testing.T, deviceConfig TestDeviceConfig, sessionConfig Config) (*Session, *TestDevice) {
	t.Helper()

	if deviceConfig.DeviceID == "" {
		deviceConfig.DeviceID = "device-1"
	}
	if deviceConfig.Name == "" {
		deviceConfig.Name = "Living Room"
	}
	if deviceConfig.PIN == "" {
		deviceConfig.PIN = testPIN
	}
	device, err := NewTestDevice(deviceConfig)
	if err != nil {
		t.Fatalf("NewTestDevice() error = %v", err)
	}

	clientEnd, deviceEnd := net.Pipe()
	device.Serve(deviceEnd)

	sessionConfig.NetConn = clientEnd
	if sessionConfig.ClientID == "" {
		sessionConfig.ClientID = "client-1"
	}
	if sessionConfig.RequestTimeout == 0 {
		sessionConfig.RequestTimeout = 2 * time.Second
	}
	if sessionConfig.StatePushTimeout == 0 {
		sessionConfig.StatePushTimeout = 500 * time.Millisecond
	}
	s, err := New(sessionConfig)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() {
		s.Stop()
		device.Close()
	})
	return s, device
}

func TestConfigValidate(t *testing.T) {
	if _, err := New(Config{Addr: "host:1"}); err == nil {
		t.Error("New() without ClientID did not fail")
	}
	if _, err := New(Config{ClientID: "c"}); !errors.Is(err, ErrNoAddress) {
		t.Errorf("New() without address error = %v, want ErrNoAddress", err)
	}
}

func TestStartUnencrypted(t *testing.T) {
	s, _ := newPair(t, TestDeviceConfig{Model: "Box 4K"}, Config{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := s.State(); got != StateReady {
		t.Fatalf("State() = %v, want Ready", got)
	}

	info := s.PeerInfo()
	if info == nil || info.UniqueID != "device-1" || info.Model != "Box 4K" {
		t.Errorf("PeerInfo() = %+v, want device-1 / Box 4K", info)
	}

	// Start again is a no-op.
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
}

func TestSendBeforeStart(t *testing.T) {
	s, _ := newPair(t, TestDeviceConfig{}, Config{})

	msg, _ := wire.NewMessage(wire.TypeCommand, &wire.CommandPayload{Command: "menu"})
	if err := s.Send(msg); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Send() before Start error = %v, want ErrInvalidState", err)
	}
	if _, err := s.SendAndReceive(context.Background(), msg, time.Second); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SendAndReceive() before Start error = %v, want ErrInvalidState", err)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	s, device := newPair(t, TestDeviceConfig{}, Config{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	msg, _ := wire.NewMessage(wire.TypeCommand, &wire.CommandPayload{Command: "select"})
	msg.Identifier = "cmd-1"
	resp, err := s.SendAndReceive(context.Background(), msg, 2*time.Second)
	if err != nil {
		t.Fatalf("SendAndReceive() error = %v", err)
	}
	if resp.Type != wire.TypeCommandResult {
		t.Errorf("response type = %v, want CommandResult", resp.Type)
	}

	got := device.Commands()
	if len(got) != 1 || got[0] != "select" {
		t.Errorf("device commands = %v, want [select]", got)
	}
}

func TestPairing(t *testing.T) {
	s, _ := newPair(t, TestDeviceConfig{}, Config{ClientID: "client-abc"})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := s.StartPairing(context.Background()); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	creds, err := s.FinishPairing(context.Background(), testPIN)
	if err != nil {
		t.Fatalf("FinishPairing() error = %v", err)
	}
	if creds.ClientID != "client-abc" {
		t.Errorf("credentials ClientID = %q, want client-abc", creds.ClientID)
	}
	if len(creds.PeerLTPK) == 0 {
		t.Error("credentials missing device long-term key")
	}
}

func TestPairingWrongPIN(t *testing.T) {
	s, _ := newPair(t, TestDeviceConfig{}, Config{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := s.StartPairing(context.Background()); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	_, err := s.FinishPairing(context.Background(), "0000")
	if err == nil {
		t.Fatal("FinishPairing() with wrong PIN succeeded")
	}
	var pairingErr *handshake.PairingError
	if !errors.As(err, &pairingErr) && !errors.Is(err, handshake.ErrAuthentication) {
		t.Errorf("FinishPairing() error = %v, want a pairing error", err)
	}
}

func TestFinishPairingWithoutStart(t *testing.T) {
	s, _ := newPair(t, TestDeviceConfig{}, Config{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := s.FinishPairing(context.Background(), testPIN); !errors.Is(err, ErrNotPaired) {
		t.Errorf("FinishPairing() error = %v, want ErrNotPaired", err)
	}
}

// pairOnce runs a full pairing conversation and returns the resulting
// credentials plus the device identity to reconnect against.
func pairOnce(t *testing.T) (*handshake.Credentials, TestDeviceConfig) {
	t.Helper()

	s, device := newPair(t, TestDeviceConfig{}, Config{ClientID: "client-verified"})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.StartPairing(context.Background()); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	creds, err := s.FinishPairing(context.Background(), testPIN)
	if err != nil {
		t.Fatalf("FinishPairing() error = %v", err)
	}
	s.Stop()

	return creds, TestDeviceConfig{
		DeviceID:     "device-1",
		Signing:      device.Signing(),
		KnownClients: device.Clients(),
	}
}

func TestStartVerified(t *testing.T) {
	creds, deviceConfig := pairOnce(t)

	s, device := newPair(t, deviceConfig, Config{
		ClientID:    "client-verified",
		Credentials: creds,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("verified Start() error = %v", err)
	}
	if got := s.State(); got != StateReady {
		t.Fatalf("State() = %v, want Ready", got)
	}

	// The connection is now encrypted; a command still round-trips.
	msg, _ := wire.NewMessage(wire.TypeCommand, &wire.CommandPayload{Command: "play"})
	msg.Identifier = "cmd-enc"
	if _, err := s.SendAndReceive(context.Background(), msg, 2*time.Second); err != nil {
		t.Fatalf("encrypted SendAndReceive() error = %v", err)
	}
	if got := device.Commands(); len(got) != 1 || got[0] != "play" {
		t.Errorf("device commands = %v, want [play]", got)
	}
}

func TestStartIntroPrecedesVerify(t *testing.T) {
	clientEnd, peerEnd := net.Pipe()
	defer peerEnd.Close()

	s, err := New(Config{
		NetConn:  clientEnd,
		ClientID: "client-1",
		Credentials: &handshake.Credentials{
			ClientID:   "client-1",
			ClientLTPK: make([]byte, 32),
			ClientLTSK: make([]byte, 64),
			PeerID:     "device-1",
			PeerLTPK:   make([]byte, 32),
		},
		RequestTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Stop)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	// A credentialed start must still identify itself before anything
	// else; read the first frame raw and check its type.
	br := bufio.NewReader(peerEnd)
	n, err := varint.Read(br)
	if err != nil {
		t.Fatalf("reading first frame length: %v", err)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(br, frame); err != nil {
		t.Fatalf("reading first frame: %v", err)
	}
	msg, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("decoding first frame: %v", err)
	}
	if msg.Type != wire.TypeDeviceInfo {
		t.Fatalf("first frame type = %v, want %v", msg.Type, wire.TypeDeviceInfo)
	}

	peerEnd.Close()
	<-errCh
}

func TestStartVerifiedUnknownClient(t *testing.T) {
	creds, deviceConfig := pairOnce(t)
	deviceConfig.KnownClients = nil

	s, _ := newPair(t, deviceConfig, Config{
		ClientID:    "client-verified",
		Credentials: creds,
	})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() against a device that forgot the pairing succeeded")
	}
	if got := s.State(); got != StateFailed {
		t.Errorf("State() = %v, want Failed", got)
	}
}

func TestStartAgainstImmediateClose(t *testing.T) {
	lost := make(chan error, 1)
	s, _ := newPair(t, TestDeviceConfig{ImmediateClose: true}, Config{
		ConnectionLost: func(err error) { lost <- err },
	})

	start := time.Now()
	err := s.Start(context.Background())
	if err == nil {
		t.Fatal("Start() against an immediately closing peer succeeded")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Start() took %v, want fast failure", elapsed)
	}
	if got := s.State(); got != StateFailed {
		t.Errorf("State() = %v, want Failed", got)
	}
	select {
	case <-lost:
	case <-time.After(time.Second):
		t.Error("ConnectionLost was never reported")
	}
}

func TestStopIdempotent(t *testing.T) {
	closed := make(chan struct{}, 2)
	s, _ := newPair(t, TestDeviceConfig{}, Config{
		ConnectionClosed: func() { closed <- struct{}{} },
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.Stop()
	s.Stop()
	time.Sleep(100 * time.Millisecond)

	if got := s.State(); got != StateStopped {
		t.Errorf("State() = %v, want Stopped", got)
	}
	if n := len(closed); n != 1 {
		t.Errorf("ConnectionClosed fired %d times, want 1", n)
	}

	msg, _ := wire.NewMessage(wire.TypeCommand, nil)
	if err := s.Send(msg); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Send() after Stop error = %v, want ErrInvalidState", err)
	}
}

func TestStopFailsPending(t *testing.T) {
	s, _ := newPair(t, TestDeviceConfig{}, Config{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		// WakeDevice with an unknown identifier never gets an answer.
		msg, _ := wire.NewMessage(wire.TypeNotification, &wire.NotificationPayload{Name: "x"})
		msg.Identifier = "never-answered"
		_, err := s.SendAndReceive(context.Background(), msg, 30*time.Second)
		done <- err
	}()
	time.Sleep(100 * time.Millisecond)

	s.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("pending request error = %v, want ErrStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending request not resolved on Stop")
	}
}

func TestPushUpdates(t *testing.T) {
	s, device := newPair(t, TestDeviceConfig{}, Config{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	states := make(chan *wire.Message, 1)
	s.RegisterListener(wire.TypeSetState, func(m *wire.Message) { states <- m }, false)

	if err := device.PushState(wire.SetStatePayload{State: wire.PlayingStatePaused, Title: "Paused Now"}); err != nil {
		t.Fatalf("PushState() error = %v", err)
	}

	select {
	case m := <-states:
		var state wire.SetStatePayload
		if err := m.DecodePayload(&state); err != nil {
			t.Fatalf("DecodePayload() error = %v", err)
		}
		if state.Title != "Paused Now" {
			t.Errorf("pushed title = %q, want Paused Now", state.Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("state push never arrived")
	}
}
