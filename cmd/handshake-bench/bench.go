package main

import (
	"context"
	"fmt"
	"time"

	"github.com/skybridgecompass/handshake/pkg/handshake"
	"github.com/skybridgecompass/handshake/pkg/identity"
	"github.com/skybridgecompass/handshake/pkg/provider"
	"github.com/skybridgecompass/handshake/pkg/suite"
	"github.com/skybridgecompass/handshake/pkg/trust"
)

// benchResult is one configuration's worth of timed iterations.
type benchResult struct {
	configuration string
	rtts          []time.Duration
	messageABytes int
	messageBBytes int
	finishedBytes int
}

func strategyFromFlag(s string) (suite.Strategy, error) {
	switch s {
	case "classicOnly":
		return suite.ClassicOnly, nil
	case "pqcOnly":
		return suite.PQCOnly, nil
	case "hybridPreferred":
		return suite.HybridPreferred, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

func policyForStrategy(strategy suite.Strategy) (suite.CryptoPolicy, suite.HandshakePolicy) {
	switch strategy {
	case suite.PQCOnly:
		return suite.CryptoPolicy{MinimumSecurityTier: suite.TierPQCPreferred}, suite.HandshakePolicy{StrictPQC: true}
	case suite.HybridPreferred:
		return suite.CryptoPolicy{MinimumSecurityTier: suite.TierHybridPreferred, AllowExperimentalHybrid: true, AdvertiseHybrid: true, RequireHybridIfAvailable: true}, suite.HandshakePolicy{}
	default:
		return suite.CryptoPolicy{}, suite.HandshakePolicy{}
	}
}

// benchPeer bundles the identity material one side of a benchmark run needs.
type benchPeer struct {
	id      string
	prov    *provider.Provider
	signing provider.SigningKeyHandle
	ik      identity.PublicKeys
}

// signingSuiteForStrategy picks the identity keypair suite matching what the
// registry will negotiate for strategy, so the generated key's shape
// (Ed25519 vs ML-DSA-65) matches the signature algorithm the chosen suite
// mandates.
func signingSuiteForStrategy(strategy suite.Strategy) suite.CryptoSuite {
	switch strategy {
	case suite.PQCOnly:
		return suite.PQCMLKEM768MLDSA65
	case suite.HybridPreferred:
		return suite.HybridXWingMLDSA65
	default:
		return suite.ClassicX25519Ed25519
	}
}

func newBenchPeer(id string, strategy suite.Strategy) (*benchPeer, error) {
	p := provider.New()
	kp, err := p.GenerateSigningKeypair(signingSuiteForStrategy(strategy))
	if err != nil {
		return nil, fmt.Errorf("generate signing keypair for %s: %w", id, err)
	}
	return &benchPeer{
		id:      id,
		prov:    p,
		signing: provider.NewSoftwareKeyHandle(kp.PrivateKey),
		ik:      identity.PublicKeys{ProtocolAlgorithm: kp.Algorithm, ProtocolPublicKey: kp.PublicKey},
	}, nil
}

// runBenchmark exercises iterations+warmup sequential handshakes between a
// fresh initiator/responder driver pair wired over transportKind, returning
// per-iteration RTT samples and the wire sizes observed on the first
// completed iteration (wire sizes are deterministic per configuration, so
// one sample suffices).
func runBenchmark(ctx context.Context, configuration, transportKind string, strategy suite.Strategy, warmup, iterations int) (*benchResult, error) {
	cp, hp := policyForStrategy(strategy)

	initiatorPeer, err := newBenchPeer("initiator", strategy)
	if err != nil {
		return nil, err
	}
	responderPeer, err := newBenchPeer("responder", strategy)
	if err != nil {
		return nil, err
	}

	initiatorTransport, responderTransport, cleanup, err := dialTransportPair(ctx, transportKind)
	if err != nil {
		return nil, fmt.Errorf("set up %s transport: %w", transportKind, err)
	}
	defer cleanup()

	initiatorDriver := handshake.New(handshake.Config{
		Provider:        initiatorPeer.prov,
		Trust:           trust.NewInMemory(),
		CryptoPolicy:    cp,
		HandshakePolicy: hp,
		Strategy:        strategy,
		Identity:        initiatorPeer.ik,
		SigningKey:      initiatorPeer.signing,
		PeerID:          "initiator",
		Timeout:         10 * time.Second,
		Transport:       initiatorTransport,
	})
	handshake.New(handshake.Config{
		Provider:        responderPeer.prov,
		Trust:           trust.NewInMemory(),
		CryptoPolicy:    cp,
		HandshakePolicy: hp,
		Strategy:        strategy,
		Identity:        responderPeer.ik,
		SigningKey:      responderPeer.signing,
		PeerID:          "responder",
		Timeout:         10 * time.Second,
		Transport:       responderTransport,
	})

	for i := 0; i < warmup; i++ {
		if _, err := initiatorDriver.InitiateHandshake(ctx, "responder"); err != nil {
			return nil, fmt.Errorf("warmup iteration %d: %w", i, err)
		}
	}

	result := &benchResult{configuration: configuration, rtts: make([]time.Duration, 0, iterations)}
	for i := 0; i < iterations; i++ {
		if _, err := initiatorDriver.InitiateHandshake(ctx, "responder"); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		metrics, ok := initiatorDriver.GetLastMetrics("responder")
		if !ok {
			return nil, fmt.Errorf("iteration %d: no metrics recorded", i)
		}
		result.rtts = append(result.rtts, metrics.RTT)
		if i == 0 {
			result.messageABytes = metrics.MessageAWireBytes
			result.messageBBytes = metrics.MessageBWireBytes
			result.finishedBytes = metrics.FinishedWireBytes
		}
	}

	return result, nil
}
