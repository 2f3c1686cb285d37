package logs

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/opsboard/internal/utils"
)

func TestGeneratorMasksSensitiveContext(t *testing.T) {
	g := &Generator{Rand: rand.New(rand.NewPCG(1, 2))}
	e := g.Next()
	assert.Equal(t, utils.RedactedValue, e.Context["password"])
	assert.Equal(t, utils.RedactedValue, e.Context["token"])
	assert.Contains(t, e.Message, "#0")
	assert.Contains(t, Services, e.Service)
	assert.Contains(t, g.Next().Message, "#1")
}

func TestSimulatedDeliversFilteredBatches(t *testing.T) {
	src := &Simulated{Generator: NewGenerator(), EmitInterval: time.Millisecond, BatchWindow: 5 * time.Millisecond}

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := src.Subscribe(context.Background(), StreamFilter{Levels: []Level{LevelError}}, func(batch []Entry) {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range batch {
			assert.Equal(t, LevelError, e.Level)
		}
		count += len(batch)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count > 0
	}, 2*time.Second, 5*time.Millisecond)

	sub.Stop()
	sub.Stop()
	assert.NoError(t, sub.Err())
	select {
	case <-sub.Done():
	default:
		t.Fatal("done not closed after stop")
	}
}

func TestWebSocketSourceReceivesBatches(t *testing.T) {
	upgrader := websocket.Upgrader{}
	handshake := make(chan [2]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handshake <- [2]string{r.Header.Get("Authorization"), strings.Join(r.URL.Query()["level"], ",")}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(ToDTOList([]Entry{
			{ID: "1", Level: LevelError, Service: "auth", Message: "boom", Timestamp: time.Now()},
			{ID: "2", Level: LevelDebug, Service: "auth", Message: "noise", Timestamp: time.Now()},
		}))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	src := &WebSocketSource{
		URL:   "ws" + strings.TrimPrefix(srv.URL, "http") + StreamPath,
		Token: func() string { return "tok" },
	}
	got := make(chan []Entry, 1)
	sub, err := src.Subscribe(context.Background(), StreamFilter{Levels: []Level{LevelError}}, func(batch []Entry) {
		got <- batch
	})
	require.NoError(t, err)

	select {
	case batch := <-got:
		require.Len(t, batch, 1)
		assert.Equal(t, "1", batch[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch received")
	}
	assert.Equal(t, [2]string{"Bearer tok", "error"}, <-handshake)

	sub.Stop()
	assert.NoError(t, sub.Err())
}

func TestWebSocketSourceReportsServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	src := &WebSocketSource{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	sub, err := src.Subscribe(context.Background(), StreamFilter{}, func([]Entry) {})
	require.NoError(t, err)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}
	assert.Error(t, sub.Err())
}

func TestStreamFilterQueryRoundTrip(t *testing.T) {
	f := StreamFilter{Levels: []Level{LevelWarn, LevelError}, Service: "auth", Search: "timeout"}
	assert.Equal(t, f, DecodeStreamFilter(EncodeStreamFilter(f)))
}
