package stockwatch

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubRegisterPublishUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
	}

	hub.register <- client

	hub.Publish(StockEvent{Type: "reserved", ProductID: "p1", Delta: -3, Remaining: 2, LowStock: true})

	select {
	case got := <-client.Send:
		var ev StockEvent
		if err := json.Unmarshal(got, &ev); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if ev.ProductID != "p1" || ev.Remaining != 2 || !ev.LowStock {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.Timestamp == 0 {
			t.Fatal("timestamp not set")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	hub.unregister <- client
}

func TestPublishOnNilHub(t *testing.T) {
	var hub *Hub
	// must not panic
	hub.Publish(StockEvent{Type: "restored", ProductID: "p2", Delta: 1})
}
