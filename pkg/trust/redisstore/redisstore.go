// Package redisstore is the fast-path trust.Provider cache backed by Redis,
// meant to sit in front of pgstore.Store via trust.Layered.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skybridgecompass/handshake/pkg/suite"
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type Cache struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

func Connect(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Cache{client: client, ctx: ctx, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Health() error {
	return c.client.Ping(c.ctx).Err()
}

func fingerprintKey(deviceID string) string { return "trust:fingerprint:" + deviceID }
func kemKeysKey(deviceID string) string     { return "trust:kem-keys:" + deviceID }
func enclaveKeyKey(deviceID string) string  { return "trust:enclave-key:" + deviceID }

// CacheFingerprint populates the cache entry a later TrustedFingerprint call
// will serve.
func (c *Cache) CacheFingerprint(deviceID string, fingerprint [32]byte) error {
	if err := c.client.Set(c.ctx, fingerprintKey(deviceID), fingerprint[:], c.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: cache fingerprint: %w", err)
	}
	return nil
}

// CacheKEMPublicKeys populates the cache entry for every pinned suite of a
// device at once; partial pin sets from pgstore should be cached whole.
func (c *Cache) CacheKEMPublicKeys(deviceID string, keys map[suite.CryptoSuite][]byte) error {
	encoded := make(map[uint8][]byte, len(keys))
	for s, pk := range keys {
		encoded[s.WireID()] = pk
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("redisstore: marshal kem public keys: %w", err)
	}
	if err := c.client.Set(c.ctx, kemKeysKey(deviceID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: cache kem public keys: %w", err)
	}
	return nil
}

// CacheSecureEnclavePublicKey populates the cache entry for a device's
// secure-enclave key pin.
func (c *Cache) CacheSecureEnclavePublicKey(deviceID string, publicKey []byte) error {
	if err := c.client.Set(c.ctx, enclaveKeyKey(deviceID), publicKey, c.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: cache secure enclave public key: %w", err)
	}
	return nil
}

// TrustedFingerprint implements trust.Provider.
func (c *Cache) TrustedFingerprint(deviceID string) ([32]byte, bool) {
	var fp [32]byte
	raw, err := c.client.Get(c.ctx, fingerprintKey(deviceID)).Bytes()
	if err != nil {
		return fp, false
	}
	copy(fp[:], raw)
	return fp, true
}

// TrustedKEMPublicKeys implements trust.Provider.
func (c *Cache) TrustedKEMPublicKeys(deviceID string) map[suite.CryptoSuite][]byte {
	raw, err := c.client.Get(c.ctx, kemKeysKey(deviceID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil
		}
		return nil
	}

	var encoded map[uint8][]byte
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil
	}

	out := make(map[suite.CryptoSuite][]byte, len(encoded))
	for wireID, pk := range encoded {
		cs, ok := suite.SuiteFromWireID(wireID)
		if !ok {
			continue
		}
		out[cs] = pk
	}
	return out
}

// TrustedSecureEnclavePublicKey implements trust.Provider.
func (c *Cache) TrustedSecureEnclavePublicKey(deviceID string) ([]byte, bool) {
	raw, err := c.client.Get(c.ctx, enclaveKeyKey(deviceID)).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}
