package sigilcrypto

import (
	"runtime"
	"sync"
)

// SecureBytes holds sensitive bytes in mlocked memory (where the OS allows)
// and zeroes them on Destroy.
type SecureBytes struct {
	data   []byte
	locked bool
	mu     sync.Mutex
}

// NewSecureBytes creates a new SecureBytes with the given size.
func NewSecureBytes(size int) (*SecureBytes, error) {
	sb := &SecureBytes{data: make([]byte, size)}

	// Locking is best effort; unprivileged processes may be refused.
	sb.locked = mlock(sb.data)

	runtime.SetFinalizer(sb, func(s *SecureBytes) {
		s.Destroy()
	})

	return sb, nil
}

// SecureBytesFromSlice copies data into a new SecureBytes.
// The source slice is left untouched; callers zero it themselves.
func SecureBytesFromSlice(data []byte) (*SecureBytes, error) {
	sb, err := NewSecureBytes(len(data))
	if err != nil {
		return nil, err
	}
	copy(sb.data, data)
	return sb, nil
}

// Bytes returns the underlying byte slice, or nil after Destroy.
func (s *SecureBytes) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// String returns the contents as a string copy. Strings cannot be zeroed,
// so use it only where an API demands one.
func (s *SecureBytes) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data)
}

// Clone returns an independent copy in fresh secure memory.
func (s *SecureBytes) Clone() (*SecureBytes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SecureBytesFromSlice(s.data)
}

// IsLocked returns whether the memory is locked (mlocked).
func (s *SecureBytes) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// IsDestroyed reports whether Destroy has run.
func (s *SecureBytes) IsDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data == nil
}

// Destroy zeros the memory and unlocks it. Safe to call multiple times.
func (s *SecureBytes) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}

	Zero(s.data)

	if s.locked {
		munlock(s.data)
		s.locked = false
	}

	s.data = nil
	runtime.SetFinalizer(s, nil)
}

// Len returns the length of the data.
func (s *SecureBytes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Zero overwrites b with zeros.
// runtime.KeepAlive stops the compiler from eliding the stores.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
