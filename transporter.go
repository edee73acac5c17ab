package uhf

// Transport moves raw frames to and from one reader.
type Transport interface {
	WriteRaw(frame []byte) error // WriteRaw writes a complete request frame
	ReadFrame() ([]byte, error)  // ReadFrame blocks until one frame arrives or the read timeout elapses
	Close() error                // Close releases the port or connection
	RemoteAddr() string          // RemoteAddr names the port, for logs and events
}

// Dialer opens a Transport to the reader at address.
type Dialer func(address string, baudRate int) (Transport, error)
