// Package pgstore is the durable trust.Provider backed by PostgreSQL:
// identity fingerprint pins, per-suite KEM public key pins, and
// secure-enclave public key pins survive process restarts here.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/skybridgecompass/handshake/pkg/suite"
)

// ErrNotFound names the absence of a pin. No Store method returns it: the
// trust.Provider methods report absence via their ok bool or a nil map.
var ErrNotFound = errors.New("pgstore: pin not found")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type Store struct {
	db *sql.DB
}

func Connect(cfg Config) (*Store, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("pgstore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("pgstore: connected to trust store database")
	return &Store{db: db}, nil
}

func (s *Store) InitSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS identity_fingerprint_pins (
			device_id   VARCHAR(255) PRIMARY KEY,
			fingerprint BYTEA NOT NULL,
			pinned_at   TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS kem_public_key_pins (
			device_id     VARCHAR(255) NOT NULL,
			suite_wire_id SMALLINT NOT NULL,
			public_key    BYTEA NOT NULL,
			pinned_at     TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (device_id, suite_wire_id)
		);

		CREATE TABLE IF NOT EXISTS secure_enclave_key_pins (
			device_id  VARCHAR(255) PRIMARY KEY,
			public_key BYTEA NOT NULL,
			pinned_at  TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_kem_public_key_pins_device
			ON kem_public_key_pins(device_id);
	`)
	if err != nil {
		return fmt.Errorf("pgstore: init schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PinFingerprint(ctx context.Context, deviceID string, fingerprint [32]byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_fingerprint_pins (device_id, fingerprint)
		VALUES ($1, $2)
		ON CONFLICT (device_id) DO UPDATE SET fingerprint = $2, pinned_at = NOW()
	`, deviceID, fingerprint[:])
	if err != nil {
		return fmt.Errorf("pgstore: pin fingerprint: %w", err)
	}
	return nil
}

func (s *Store) PinKEMPublicKey(ctx context.Context, deviceID string, cs suite.CryptoSuite, publicKey []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kem_public_key_pins (device_id, suite_wire_id, public_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, suite_wire_id) DO UPDATE SET public_key = $3, pinned_at = NOW()
	`, deviceID, cs.WireID(), publicKey)
	if err != nil {
		return fmt.Errorf("pgstore: pin kem public key: %w", err)
	}
	return nil
}

func (s *Store) PinSecureEnclavePublicKey(ctx context.Context, deviceID string, publicKey []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secure_enclave_key_pins (device_id, public_key)
		VALUES ($1, $2)
		ON CONFLICT (device_id) DO UPDATE SET public_key = $2, pinned_at = NOW()
	`, deviceID, publicKey)
	if err != nil {
		return fmt.Errorf("pgstore: pin secure enclave public key: %w", err)
	}
	return nil
}

// TrustedFingerprint implements trust.Provider.
func (s *Store) TrustedFingerprint(deviceID string) ([32]byte, bool) {
	var fp [32]byte
	var raw []byte
	row := s.db.QueryRowContext(context.Background(),
		`SELECT fingerprint FROM identity_fingerprint_pins WHERE device_id = $1`, deviceID)
	if err := row.Scan(&raw); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("pgstore: lookup fingerprint for %s: %v", deviceID, err)
		}
		return fp, false
	}
	copy(fp[:], raw)
	return fp, true
}

// TrustedKEMPublicKeys implements trust.Provider.
func (s *Store) TrustedKEMPublicKeys(deviceID string) map[suite.CryptoSuite][]byte {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT suite_wire_id, public_key FROM kem_public_key_pins WHERE device_id = $1`, deviceID)
	if err != nil {
		log.Printf("pgstore: lookup kem public keys for %s: %v", deviceID, err)
		return nil
	}
	defer rows.Close()

	out := make(map[suite.CryptoSuite][]byte)
	for rows.Next() {
		var wireID uint8
		var pk []byte
		if err := rows.Scan(&wireID, &pk); err != nil {
			log.Printf("pgstore: scan kem public key row for %s: %v", deviceID, err)
			continue
		}
		cs, ok := suite.SuiteFromWireID(wireID)
		if !ok {
			log.Printf("pgstore: unrecognized suite wire id %d pinned for %s", wireID, deviceID)
			continue
		}
		out[cs] = pk
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TrustedSecureEnclavePublicKey implements trust.Provider.
func (s *Store) TrustedSecureEnclavePublicKey(deviceID string) ([]byte, bool) {
	var pk []byte
	row := s.db.QueryRowContext(context.Background(),
		`SELECT public_key FROM secure_enclave_key_pins WHERE device_id = $1`, deviceID)
	if err := row.Scan(&pk); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("pgstore: lookup secure enclave public key for %s: %v", deviceID, err)
		}
		return nil, false
	}
	return pk, true
}
