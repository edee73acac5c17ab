package uhf

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

// assertBytesEqual checks if two byte slices are equal.
func assertBytesEqual(t *testing.T, expected []byte, actual []byte) {
	t.Helper()
	if !bytes.Equal(expected, actual) {
		t.Errorf("Expected [% X], but got [% X]", expected, actual)
	}
}

// assertErrorIs checks that err wraps target.
func assertErrorIs(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("Expected error wrapping %v, but got %v", target, err)
	}
}

// buildResponse assembles a valid response frame for opcode with status and
// data.
func buildResponse(opcode, status byte, data ...byte) []byte {
	frame := []byte{byte(5 + len(data)), BroadcastAddress, opcode, status}
	frame = append(frame, data...)
	lo, hi := Checksum(frame)
	return append(frame, lo, hi)
}

type reply struct {
	frame []byte
	err   error
}

// fakeTransport is a scripted Transport. Replies queued with push/pushErr are
// returned by ReadFrame in order; when respond is set, every written request
// queues respond's answer, then any frames followUp returns for it. An empty
// queue reads as a timeout.
type fakeTransport struct {
	mu       sync.Mutex
	writes   [][]byte
	replies  []reply
	respond  func(req []byte) ([]byte, error)
	followUp func(req []byte) [][]byte
	writeErr error
	closed   bool
	addr     string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{addr: "fake0"}
}

func (f *fakeTransport) push(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{frame: frame})
}

func (f *fakeTransport) pushErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{err: err})
}

func (f *fakeTransport) setRespond(fn func(req []byte) ([]byte, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = fn
}

func (f *fakeTransport) WriteRaw(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return &TransportError{Op: "write", Err: ErrTransportClosed}
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), frame...))
	if f.respond != nil {
		out, err := f.respond(frame)
		f.replies = append(f.replies, reply{frame: out, err: err})
	}
	if f.followUp != nil {
		for _, more := range f.followUp(frame) {
			f.replies = append(f.replies, reply{frame: more})
		}
	}
	return nil
}

func (f *fakeTransport) ReadFrame() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, &TransportError{Op: "read", Err: ErrTransportClosed}
	}
	if len(f.replies) == 0 {
		return nil, &TransportError{Op: "read", Err: ErrReadTimeout}
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.frame, r.err
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return f.addr }

func (f *fakeTransport) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
