package wstransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serveOneConnection(t *testing.T, cfg Config, peerID string, accepted chan<- *Endpoint) http.HandlerFunc {
	t.Helper()
	upgrader := Upgrader(cfg)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		accepted <- Accept(cfg, conn, peerID)
	}
}

func dialPair(t *testing.T) (client, server *Endpoint) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PingInterval = 0

	accepted := make(chan *Endpoint, 1)
	srv := httptest.NewServer(serveOneConnection(t, cfg, "client", accepted))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cli, err := Dial(ctx, cfg, "server", wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}

	return cli, server
}

func TestSendDeliversFrameToOtherSide(t *testing.T) {
	client, server := dialPair(t)
	defer client.Close()
	defer server.Close()

	received := make(chan []byte, 1)
	server.SetOnReceive(func(peer string, data []byte) {
		if peer != "client" {
			t.Errorf("peer = %q, want %q", peer, "client")
		}
		received <- data
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payload := []byte("message-a-frame")
	if err := client.Send(ctx, "server", payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != string(payload) {
			t.Errorf("received %q, want %q", data, payload)
		}
	case <-time.After(time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestSendRejectsWrongPeer(t *testing.T) {
	client, server := dialPair(t)
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Send(ctx, "someone-else", []byte("x")); err == nil {
		t.Fatal("expected an error sending to an unbound peer id")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	client, server := dialPair(t)
	defer server.Close()

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Send(ctx, "server", []byte("x")); err == nil {
		t.Fatal("expected Send after Close to fail")
	}
}

func TestBidirectionalExchange(t *testing.T) {
	client, server := dialPair(t)
	defer client.Close()
	defer server.Close()

	clientGot := make(chan []byte, 1)
	serverGot := make(chan []byte, 1)
	client.SetOnReceive(func(peer string, data []byte) { clientGot <- data })
	server.SetOnReceive(func(peer string, data []byte) { serverGot <- data })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Send(ctx, "server", []byte("a-to-b")); err != nil {
		t.Fatalf("client Send: %v", err)
	}
	if err := server.Send(ctx, "client", []byte("b-to-a")); err != nil {
		t.Fatalf("server Send: %v", err)
	}

	select {
	case data := <-serverGot:
		if string(data) != "a-to-b" {
			t.Errorf("server got %q", data)
		}
	case <-time.After(time.Second):
		t.Fatal("server never received")
	}

	select {
	case data := <-clientGot:
		if string(data) != "b-to-a" {
			t.Errorf("client got %q", data)
		}
	case <-time.After(time.Second):
		t.Fatal("client never received")
	}
}

func TestDialFailsOnInvalidURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, DefaultConfig(), "server", "://not-a-url"); err == nil {
		t.Fatal("expected an error dialing an invalid URL")
	}
}
