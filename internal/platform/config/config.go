package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// RemoteBaseURL points at the case-management backend. Empty means the
	// embedded in-memory backend, which is the development mode.
	RemoteBaseURL string

	// CatalogSource selects where reference data comes from: "static" or
	// "postgres". Postgres requires PostgresURL.
	CatalogSource string
	PostgresURL   string
	RedisURL      string

	// AuditDSN enables the durable audit store; empty keeps events in memory.
	AuditDSN     string
	AuditBuffer  int
	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string
	AuthDisabled  bool
}

// CatalogSnapshotTTL bounds how stale the shared redis catalog snapshot may
// get before sibling processes reload from the source of record.
var CatalogSnapshotTTL = 12 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CASEFORM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	catalogSource := os.Getenv("CASEFORM_CATALOG_SOURCE")
	if catalogSource == "" {
		catalogSource = "static"
	}

	auditBuffer := 256
	if raw := os.Getenv("CASEFORM_AUDIT_BUFFER"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			auditBuffer = n
		}
	}

	var brokers []string
	if raw := os.Getenv("CASEFORM_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	auditTopic := os.Getenv("CASEFORM_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "caseform.audit"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		RemoteBaseURL: os.Getenv("CASEFORM_REMOTE_BASE_URL"),
		CatalogSource: catalogSource,
		PostgresURL:   os.Getenv("CASEFORM_POSTGRES_URL"),
		RedisURL:      os.Getenv("CASEFORM_REDIS_URL"),
		AuditDSN:      os.Getenv("CASEFORM_AUDIT_DSN"),
		AuditBuffer:   auditBuffer,
		KafkaBrokers:  brokers,
		AuditTopic:    auditTopic,
		JWTSigningKey: jwtSigningKey,
		AuthDisabled:  os.Getenv("CASEFORM_AUTH_DISABLED") == "true",
	}
}
