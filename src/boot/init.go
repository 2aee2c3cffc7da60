package boot

import (
	"log"
	"os"

	"vitacal/src/common"
	"vitacal/src/db"
	"vitacal/src/lib"
	awslib "vitacal/src/lib/aws"
	"vitacal/src/models"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	conn := db.GetDb()

	err := conn.AutoMigrate(
		&models.Expert{},
		&models.Schedule{},
		&models.AvailabilityWindow{},
		&models.Event{},
		&models.SlotReservation{},
		&models.Meeting{},
		&models.RefundRecord{},
		&models.SweeperRun{},
		&models.Setting{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	// The slot exclusivity invariant lives in storage, not application
	// logic: held reservations and promoted claims (meetings) share one
	// exclusion domain, so a racing insert or late promotion fails with a
	// constraint violation instead of double-booking the expert. The gist
	// exclusion constraint rejects any overlapping interval for the same
	// expert, not just an identical (start_at, end_at) pair; the unique
	// index stays alongside it to catch exact duplicates as the cheaper
	// 23505 violation.
	err = conn.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error
	if err != nil {
		log.Fatalf("error creating btree_gist extension: %s", err.Error())
	}
	err = conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_slot_claims_exclusive
		ON slot_reservations (expert_id, start_at, end_at)
		WHERE status IN ('held', 'promoted')
	`).Error
	if err != nil {
		log.Fatalf("error creating slot exclusion index: %s", err.Error())
	}
	err = conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'slot_claims_no_overlap') THEN
				ALTER TABLE slot_reservations
					ADD CONSTRAINT slot_claims_no_overlap
					EXCLUDE USING gist (expert_id WITH =, tstzrange(start_at, end_at) WITH &&)
					WHERE (status IN ('held', 'promoted'));
			END IF;
		END
		$$
	`).Error
	if err != nil {
		log.Fatalf("error creating slot overlap constraint: %s", err.Error())
	}

	return conn
}

// InitScheduler registers the periodic sweeper tick and starts the shared
// scheduler.
func InitScheduler() {
	if err := common.StartSweeper(); err != nil {
		log.Printf("Error registering sweeper job: %s\n", err.Error())
		return
	}
	lib.StartScheduler()
}

// InitBroker wires up the asynchronous inputs and outputs: the
// notification topic, its consumer, the settlement event queue, and the
// ops alert subscription for refunds that exhausted their retry budget.
func InitBroker() {
	go lib.KafkaCreateTopics(lib.WithSuffix("ReservationNotifications"))
	go common.NotificationsConsumer()
	go common.SettlementQueueConsumer()

	if os.Getenv("API_ENV") != "local" {
		if opsEmail := os.Getenv("OPS_ALERT_EMAIL"); opsEmail != "" {
			go func() {
				sub := awslib.NewSNSSubscriber(lib.WithSuffix("OpsAlerts"))
				if sub == nil {
					return
				}
				if _, err := sub.Subscribe("email", opsEmail); err != nil {
					log.Printf("[Broker] Could not subscribe %s to ops alerts: %s\n", opsEmail, err.Error())
				}
			}()
		}
	}
}

// InitSecrets pulls provider credentials that are not baked into the
// environment: calendar OAuth material from the secrets bucket and the
// Stripe webhook signing secret from Secrets Manager.
func InitSecrets() {
	if os.Getenv("API_ENV") == "local" {
		return
	}
	for _, name := range []string{"calendar-credentials.json", "calendar-token.json", "admin-sdk-credentials.json"} {
		if err := awslib.S3DownloadSecret(name); err != nil {
			log.Printf("[Secrets] Could not download %s: %s\n", name, err.Error())
		}
	}
	if os.Getenv("STRIPE_WEBHOOK_SECRET") == "" {
		secret, err := lib.GetSecretValue("stripe-webhook-secret")
		if err != nil || secret == nil {
			log.Println("[Secrets] Stripe webhook secret unavailable; webhook verification will fail")
			return
		}
		os.Setenv("STRIPE_WEBHOOK_SECRET", *secret)
	}
}
