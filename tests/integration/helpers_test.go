//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gokatarajesh/quiz-rooms/pkg/http/ws"
)

type createdRoom struct {
	RoomID   string `json:"roomId"`
	RoomCode string `json:"roomCode"`
	QuizID   string `json:"quizId"`
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// quizID returns the seeded quiz used by the flow tests, skipping when none is configured.
func quizID(t *testing.T) string {
	t.Helper()
	id := os.Getenv("INTEGRATION_QUIZ_ID")
	if id == "" {
		t.Skip("INTEGRATION_QUIZ_ID not set")
	}
	return id
}

func createRoom(t *testing.T, baseURL, quizID string) createdRoom {
	t.Helper()

	body, err := json.Marshal(map[string]string{"quizId": quizID})
	if err != nil {
		t.Fatalf("marshal room payload: %v", err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/sessions", baseURL), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create room request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create room status: %d", resp.StatusCode)
	}

	var out createdRoom
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode create room response failed: %v", err)
	}
	if out.RoomCode == "" {
		t.Fatalf("empty room code in response")
	}
	return out
}

func dialRoom(t *testing.T, wsBase, role, roomCode, name string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(wsBase)
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("role", role)
	q.Set("roomCode", roomCode)
	if name != "" {
		q.Set("name", name)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()

	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("failed to send %v: %v", frame["type"], err)
	}
}

// waitForEvent reads frames until one of type typ arrives and returns its fields.
func waitForEvent(t *testing.T, conn *websocket.Conn, typ string, timeout time.Duration) map[string]any {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read ws message failed while waiting for %s: %v", typ, err)
		}

		got, err := ws.PeekType(data)
		if err != nil {
			t.Fatalf("malformed frame: %v", err)
		}
		if got != typ {
			continue
		}

		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode %s frame: %v", typ, err)
		}
		return out
	}
	t.Fatalf("timeout waiting for %s", typ)
	return nil
}
