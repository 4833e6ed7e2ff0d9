package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/skybridgecompass/handshake/pkg/handshake"
	"github.com/skybridgecompass/handshake/pkg/transport"
	"github.com/skybridgecompass/handshake/pkg/transport/quictransport"
	"github.com/skybridgecompass/handshake/pkg/transport/wstransport"
)

// dialTransportPair wires an initiator and responder Transport for one of
// the three supported carriers, returning a cleanup func that tears down
// whatever background listener or connection it opened.
func dialTransportPair(ctx context.Context, kind string) (initiator, responder handshake.Transport, cleanup func(), err error) {
	switch kind {
	case "memory", "":
		return memoryTransportPair()
	case "ws":
		return wsTransportPair(ctx)
	case "quic":
		return quicTransportPair(ctx)
	default:
		return nil, nil, nil, fmt.Errorf("unknown transport %q", kind)
	}
}

func memoryTransportPair() (handshake.Transport, handshake.Transport, func(), error) {
	bus := transport.NewMemory()
	return bus.Endpoint("initiator"), bus.Endpoint("responder"), func() { bus.Close() }, nil
}

func wsTransportPair(ctx context.Context) (handshake.Transport, handshake.Transport, func(), error) {
	cfg := wstransport.DefaultConfig()
	cfg.PingInterval = 0

	accepted := make(chan *wstransport.Endpoint, 1)
	upgrader := wstransport.Upgrader(cfg)
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			accepted <- wstransport.Accept(cfg, conn, "initiator")
		}),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listen: %w", err)
	}
	go srv.Serve(ln)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	url := fmt.Sprintf("ws://%s/", ln.Addr().String())
	initiatorEP, err := wstransport.Dial(dialCtx, cfg, "responder", url)
	if err != nil {
		srv.Close()
		return nil, nil, nil, fmt.Errorf("dial: %w", err)
	}

	var responderEP *wstransport.Endpoint
	select {
	case responderEP = <-accepted:
	case <-time.After(5 * time.Second):
		srv.Close()
		return nil, nil, nil, fmt.Errorf("server never accepted the connection")
	}

	cleanup := func() {
		initiatorEP.Close()
		responderEP.Close()
		srv.Close()
	}
	return initiatorEP, responderEP, cleanup, nil
}

func quicTransportPair(ctx context.Context) (handshake.Transport, handshake.Transport, func(), error) {
	cfg := quictransport.DefaultConfig()
	tlsConfig, err := selfSignedTLSConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate tls config: %w", err)
	}

	ln, err := quictransport.Listen("127.0.0.1:0", tlsConfig, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listen: %w", err)
	}

	type accepted struct {
		ep  *quictransport.Endpoint
		err error
	}
	acceptedCh := make(chan accepted, 1)
	go func() {
		conn, stream, err := ln.AcceptConnection(ctx)
		if err != nil {
			acceptedCh <- accepted{err: err}
			return
		}
		acceptedCh <- accepted{ep: quictransport.Accept(cfg, conn, stream, "initiator")}
	}()

	initiatorEP, err := quictransport.Dial(ctx, cfg, tlsConfig, "responder", ln.Addr().String())
	if err != nil {
		ln.Close()
		return nil, nil, nil, fmt.Errorf("dial: %w", err)
	}

	var responderEP *quictransport.Endpoint
	select {
	case r := <-acceptedCh:
		if r.err != nil {
			ln.Close()
			return nil, nil, nil, fmt.Errorf("accept: %w", r.err)
		}
		responderEP = r.ep
	case <-time.After(5 * time.Second):
		ln.Close()
		return nil, nil, nil, fmt.Errorf("server never accepted the connection")
	}

	cleanup := func() {
		initiatorEP.Close()
		responderEP.Close()
		ln.Close()
	}
	return initiatorEP, responderEP, cleanup, nil
}

func selfSignedTLSConfig() (*tls.Config, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "handshake-bench"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return nil, err
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		NextProtos:         []string{"handshake-bench"},
		InsecureSkipVerify: true,
	}, nil
}
