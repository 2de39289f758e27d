package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	emailPkg "divehub/internal/adapters/email"
	web "divehub/internal/adapters/http"
	"divehub/internal/adapters/http/perf"
	"divehub/internal/adapters/storage"
	accountStorePkg "divehub/internal/adapters/storage/account"
	articleStorePkg "divehub/internal/adapters/storage/article"
	caciStorePkg "divehub/internal/adapters/storage/caci"
	eligibilityStorePkg "divehub/internal/adapters/storage/eligibility"
	eventStorePkg "divehub/internal/adapters/storage/event"
	"divehub/internal/adapters/storage/files"
	galleryStorePkg "divehub/internal/adapters/storage/gallery"
	memberStorePkg "divehub/internal/adapters/storage/member"
	outboxStorePkg "divehub/internal/adapters/storage/outbox"
	participationStorePkg "divehub/internal/adapters/storage/participation"
	"divehub/internal/application/orchestrators"
	"divehub/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Initialize database with WAL mode, foreign keys, and busy timeout
	dbPath := envOrDefault("DIVEHUB_DB", "divehub.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	// Run database migrations
	if err := storage.MigrateDB(db, dbPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	log.Println("Database initialized successfully!")

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)

	// File storage for medical certificates and gallery photos
	fileStore, err := files.NewLocalStore(envOrDefault("DIVEHUB_FILES_DIR", "uploads"))
	if err != nil {
		log.Fatalf("failed to open file store: %v", err)
	}

	// Create store instances (using timed DB for query instrumentation)
	acctStore := accountStorePkg.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:       acctStore,
		MemberStore:        memberStorePkg.NewSQLiteStore(timedDB),
		EventStore:         eventStorePkg.NewSQLiteStore(timedDB),
		RuleStore:          eligibilityStorePkg.NewSQLiteStore(timedDB),
		ParticipationStore: participationStorePkg.NewSQLiteStore(timedDB),
		CertificateStore:   caciStorePkg.NewSQLiteStore(timedDB),
		AccessLogStore:     caciStorePkg.NewSQLiteAccessLogStore(timedDB),
		GalleryStore:       galleryStorePkg.NewSQLiteStore(timedDB),
		ArticleStore:       articleStorePkg.NewSQLiteStore(timedDB),
		OutboxStore:        outboxStorePkg.NewSQLiteStore(timedDB),
		FileStore:          fileStore,
	}

	// Seed default admin account if no accounts exist
	adminEmail := envOrDefault("DIVEHUB_ADMIN_EMAIL", "bureau@club-plongee.fr")
	adminPassword := envOrDefault("DIVEHUB_ADMIN_PASSWORD", "Palier a trois metres")
	seedDeps := orchestrators.CreateAccountDeps{
		AccountStore: acctStore,
		GenerateID:   func() string { return uuid.New().String() },
		Now:          time.Now,
	}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), seedDeps, adminEmail, adminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Configure email sender
	resendKey := os.Getenv("DIVEHUB_RESEND_KEY")
	emailFrom := envOrDefault("DIVEHUB_RESEND_FROM", "Club Plongée <noreply@club-plongee.fr>")
	emailReply := envOrDefault("DIVEHUB_REPLY_TO", "bureau@club-plongee.fr")
	var sender emailPkg.Sender
	if resendKey != "" {
		sender = emailPkg.NewResendSender(resendKey, emailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if os.Getenv("DIVEHUB_ENV") == "production" {
			log.Println("WARNING: DIVEHUB_RESEND_KEY is not set — email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop — set DIVEHUB_RESEND_KEY for real delivery)")
		}
	}
	web.SetEmailSender(sender, emailFrom, emailReply)
	web.BaseURL = envOrDefault("DIVEHUB_BASE_URL", "http://localhost:8080")

	// Start outbox background worker for email delivery and retries
	stopCh := make(chan struct{})
	defer close(stopCh)
	executors := map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: &orchestrators.EmailExecutor{Sender: sender, From: emailFrom, ReplyTo: emailReply},
	}
	outboxProcessor := orchestrators.NewOutboxProcessor(stores.OutboxStore, executors)
	orchestrators.StartBackgroundWorker(outboxProcessor, 1*time.Minute, stopCh)

	// Nightly-ish retention sweep: expired certificates, aged access logs,
	// expired galleries
	orchestrators.StartScheduledJob("retention_sweep", 12*time.Hour, stopCh, func(ctx context.Context) error {
		_, err := orchestrators.ExecuteRetentionSweep(ctx, orchestrators.RetentionSweepDeps{
			CertificateStore:  stores.CertificateStore,
			AccessLogStore:    stores.AccessLogStore,
			GalleryStore:      stores.GalleryStore,
			FileStore:         fileStore,
			LogRetentionYears: envIntOrDefault("DIVEHUB_LOG_RETENTION_YEARS", 0),
			Now:               time.Now,
		})
		return err
	})

	// Certificate and gallery expiry reminders at 30 and 7 days
	orchestrators.StartScheduledJob("expiry_reminders", 24*time.Hour, stopCh, func(ctx context.Context) error {
		_, err := orchestrators.ExecuteExpiryReminders(ctx, orchestrators.ExpiryRemindersInput{}, orchestrators.ExpiryRemindersDeps{
			CertificateStore: stores.CertificateStore,
			GalleryStore:     stores.GalleryStore,
			MemberStore:      stores.MemberStore,
			AccountStore:     stores.AccountStore,
			OutboxStore:      stores.OutboxStore,
			GenerateID:       func() string { return uuid.New().String() },
			Now:              time.Now,
		})
		return err
	})

	// Create HTTP handler with middleware (pass collector for timing + perf endpoint)
	mux := web.NewMux(stores, collector)

	// Start server
	addr := envOrDefault("DIVEHUB_ADDR", ":8080")
	log.Printf("DiveHub %s starting on %s (env=%s, schema=%d)", version, addr, envOrDefault("DIVEHUB_ENV", "development"), storage.LatestSchemaVersion())

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
