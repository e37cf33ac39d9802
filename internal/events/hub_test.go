package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestWSWelcomePrecedesBroadcasts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	router := gin.New()
	router.GET("/ws", WSHandler(hub))

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if !strings.Contains(string(msg), `"welcome"`) {
		t.Errorf("first frame = %s, want welcome", msg)
	}

	for i := 0; i < 100 && hub.Stats().WSClients == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Stats().WSClients != 1 {
		t.Fatal("client never registered with the hub")
	}

	hub.BroadcastJSON(CorpusEvent{Type: "corpus.reset", BookCount: 3, At: time.Now().UTC()})

	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if !strings.Contains(string(msg), "corpus.reset") {
		t.Errorf("broadcast frame = %s", msg)
	}
}
