package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const holdReadDelay = 10 * time.Millisecond

// FakeTokenServer answers every grant on /token with a fixed token set.
type FakeTokenServer struct {
	*httptest.Server

	AccessToken string
	calls       atomic.Int32
}

// NewFakeTokenServer starts a token endpoint that issues accessToken.
func NewFakeTokenServer(tb testing.TB, accessToken string) *FakeTokenServer {
	tb.Helper()

	f := &FakeTokenServer{AccessToken: accessToken}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  f.AccessToken,
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "fake-refresh",
		})
	}))
	tb.Cleanup(f.Close)

	return f
}

// Calls returns how many token requests were served.
func (f *FakeTokenServer) Calls() int32 {
	return f.calls.Load()
}

// FakeUploadAPI serves the resumable upload endpoints. With Hold set, the
// transfer request is drained slowly and never answered, so a test can
// interrupt an upload in flight.
type FakeUploadAPI struct {
	*httptest.Server

	VideoID string
	Hold    bool

	// TransferStarted is closed when the first transfer request arrives.
	TransferStarted chan struct{}

	// stop ends held transfers so Close does not wait on them.
	stop chan struct{}

	mu        sync.Mutex
	startOnce sync.Once
	auth      []string
	received  int64
}

// NewFakeUploadAPI starts a fake upload API that accepts every upload as
// videoID.
func NewFakeUploadAPI(tb testing.TB, videoID string) *FakeUploadAPI {
	tb.Helper()

	f := &FakeUploadAPI{
		VideoID:         videoID,
		TransferStarted: make(chan struct{}),
		stop:            make(chan struct{}),
	}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /videos", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()

		w.Header().Set("Location", f.URL+"/session")
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("PUT /session", f.transfer)

	f.Server = httptest.NewServer(mux)
	tb.Cleanup(func() {
		close(f.stop)
		f.Close()
	})

	return f
}

func (f *FakeUploadAPI) transfer(w http.ResponseWriter, r *http.Request) {
	f.startOnce.Do(func() { close(f.TransferStarted) })

	if f.Hold {
		// Trickle-read so the client stays mid-transfer until it hangs up.
		buf := make([]byte, 1024)
		for {
			if _, err := r.Body.Read(buf); err != nil {
				return
			}

			select {
			case <-r.Context().Done():
				return
			case <-f.stop:
				return
			case <-time.After(holdReadDelay):
			}
		}
	}

	n, err := io.Copy(io.Discard, r.Body)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.received += n
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      f.VideoID,
		"snippet": map[string]any{"title": "fake"},
		"status":  map[string]any{"privacyStatus": "private"},
	})
}

// Authorizations returns the Authorization headers sent to session
// initiation, in order.
func (f *FakeUploadAPI) Authorizations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.auth...)
}

// Received returns the number of media bytes accepted.
func (f *FakeUploadAPI) Received() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.received
}
