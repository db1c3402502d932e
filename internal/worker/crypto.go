package worker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

// decryptRequest is one unit of work sent to the crypto worker's goroutine.
type decryptRequest struct {
	data  []byte
	key   []byte
	reply chan decryptResult
}

type decryptResult struct {
	plaintext []byte
	err       error
}

// cryptoWorker decrypts secretbox-sealed content on a dedicated goroutine.
// The goroutine is the long-lived execution context the pool amortizes:
// it starts when the worker is created and exits on Close.
type cryptoWorker struct {
	requests  chan decryptRequest
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewCryptoWorker starts a crypto worker and returns it. Satisfies [Factory].
func NewCryptoWorker() (Worker, error) {
	w := &cryptoWorker{
		requests: make(chan decryptRequest),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *cryptoWorker) loop() {
	defer close(w.done)
	for {
		select {
		case req := <-w.requests:
			plaintext, err := openSealed(req.data, req.key)
			req.reply <- decryptResult{plaintext: plaintext, err: err}
		case <-w.quit:
			return
		}
	}
}

// Decrypt sends data to the worker goroutine and waits for the plaintext.
func (w *cryptoWorker) Decrypt(ctx context.Context, data, key []byte) ([]byte, error) {
	req := decryptRequest{
		data:  data,
		key:   key,
		reply: make(chan decryptResult, 1),
	}

	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, fmt.Errorf("crypto worker is closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.plaintext, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the worker goroutine and waits for it to exit. Safe to call
// more than once; requests stays open so a late Decrypt fails instead of
// panicking.
func (w *cryptoWorker) Close() error {
	w.closeOnce.Do(func() { close(w.quit) })
	<-w.done
	return nil
}

// openSealed decrypts a secretbox message laid out as nonce || box.
func openSealed(data, key []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("decryption key must be 32 bytes, got %d", len(key))
	}
	if len(data) < 24+secretbox.Overhead {
		return nil, fmt.Errorf("sealed content too short: %d bytes", len(data))
	}

	var nonce [24]byte
	copy(nonce[:], data[:24])
	var k [32]byte
	copy(k[:], key)

	plaintext, ok := secretbox.Open(nil, data[24:], &nonce, &k)
	if !ok {
		return nil, fmt.Errorf("failed to open sealed content")
	}
	return plaintext, nil
}

// Seal encrypts plaintext as nonce || box. Used by tests and by tooling that
// stages fixture content.
func Seal(plaintext, key []byte, nonce [24]byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	var k [32]byte
	copy(k[:], key)
	out := make([]byte, 24, 24+len(plaintext)+secretbox.Overhead)
	copy(out, nonce[:])
	return secretbox.Seal(out, plaintext, &nonce, &k), nil
}
