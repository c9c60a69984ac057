package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

// dialHub поднимает ws-сервер, регистрирующий входящее соединение в hub,
// и возвращает клиентскую сторону
func dialHub(t *testing.T, hub *Hub, connectionID string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Add(connectionID, conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestHubPushDelivers(t *testing.T) {
	hub := NewHub(logger.New("error"))
	client := dialHub(t, hub, "conn-1")

	if err := hub.Push(context.Background(), "conn-1", []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("Push: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(data) != `{"type":"ping"}` {
		t.Fatalf("received %q", data)
	}
}

func TestHubPushUnknownConnection(t *testing.T) {
	hub := NewHub(logger.New("error"))

	err := hub.Push(context.Background(), "nobody", []byte("{}"))
	if !errors.Is(err, apperrors.ErrStaleConnection) {
		t.Fatalf("Push = %v, want ErrStaleConnection", err)
	}
}

func TestHubRemoveMakesConnectionStale(t *testing.T) {
	hub := NewHub(logger.New("error"))
	dialHub(t, hub, "conn-1")

	hub.Remove("conn-1")

	err := hub.Push(context.Background(), "conn-1", []byte("{}"))
	if !errors.Is(err, apperrors.ErrStaleConnection) {
		t.Fatalf("Push after Remove = %v, want ErrStaleConnection", err)
	}
}
