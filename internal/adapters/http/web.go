package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"divehub/internal/adapters/email"
	"divehub/internal/adapters/http/middleware"
	"divehub/internal/adapters/http/perf"
	accountStore "divehub/internal/adapters/storage/account"
	articleStore "divehub/internal/adapters/storage/article"
	caciStore "divehub/internal/adapters/storage/caci"
	eligibilityStore "divehub/internal/adapters/storage/eligibility"
	eventStore "divehub/internal/adapters/storage/event"
	"divehub/internal/adapters/storage/files"
	galleryStore "divehub/internal/adapters/storage/gallery"
	memberStore "divehub/internal/adapters/storage/member"
	outboxStore "divehub/internal/adapters/storage/outbox"
	participationStore "divehub/internal/adapters/storage/participation"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore       accountStore.Store
	MemberStore        memberStore.Store
	EventStore         eventStore.Store
	RuleStore          eligibilityStore.Store
	ParticipationStore participationStore.Store
	CertificateStore   caciStore.CertificateStore
	AccessLogStore     caciStore.AccessLogStore
	GalleryStore       galleryStore.Store
	ArticleStore       articleStore.Store
	OutboxStore        outboxStore.Store
	FileStore          files.Store
}

// loadCSRFKey reads the CSRF secret from DIVEHUB_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("DIVEHUB_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("DIVEHUB_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("DIVEHUB_ENV") == "production" {
		log.Fatal("DIVEHUB_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set DIVEHUB_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// Email configuration
var emailFromAddress string
var emailReplyTo string

// BaseURL is the public origin used to build links in outgoing emails.
var BaseURL = "http://localhost:8080"

// SetEmailSender sets the global email sender for the application.
func SetEmailSender(sender email.Sender, from, replyTo string) {
	emailSender = sender
	emailFromAddress = from
	emailReplyTo = replyTo
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = os.Getenv("DIVEHUB_ENV") == "production"

	mux := http.NewServeMux()
	registerRoutes(mux)

	// CSRF key: 32-byte hex-encoded secret from env var
	csrfKey := loadCSRFKey()

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> Auth -> CSRF -> SecurityHeaders -> RateLimit -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector),
	)
}
