package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/voicedesk/callflow/internal/config"
	"github.com/voicedesk/callflow/internal/db/gormdb"
	"github.com/voicedesk/callflow/internal/domain/call"
	"github.com/voicedesk/callflow/internal/domain/conversation"
	"github.com/voicedesk/callflow/internal/domain/order"
	"github.com/voicedesk/callflow/internal/prompts"
	callRepo "github.com/voicedesk/callflow/internal/repository/gorm/call"
	convRepo "github.com/voicedesk/callflow/internal/repository/gorm/conversation"
	orderRepo "github.com/voicedesk/callflow/internal/repository/gorm/order"
	recRepo "github.com/voicedesk/callflow/internal/repository/gorm/recording"
)

func main() {
	ctx := context.Background()

	// Load application configuration (DB, Redis, etc.) from env/.env.
	cfg := config.New()

	// Open a Postgres connection through our GORM adapter.
	gormAdapter, err := gormdb.New(cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("[Seed] Failed to connect to database: %v", err)
	}

	log.Printf("[Seed] Connected to database %q", cfg.DB.Name)

	// 1) AutoMigrate: make sure all tables exist.
	// We go through the adapter to access the underlying *gorm.DB.
	rawDB := gormAdapter.Conn().(*gorm.DB)

	if err := rawDB.AutoMigrate(
		&callRepo.CallModel{},
		&convRepo.EntryModel{},
		&orderRepo.OrderModel{},
		&recRepo.RecordingModel{},
	); err != nil {
		log.Fatalf("[Seed] AutoMigrate failed: %v", err)
	}
	log.Println("[Seed] Tables are up to date (AutoMigrate completed).")

	// 2) Primitive seeding: a handful of demo calls with dialogue history.
	const seedCount = 10

	calls := callRepo.NewRepository(gormAdapter)
	convs := convRepo.NewRepository(gormAdapter)
	orders := orderRepo.NewRepository(gormAdapter)

	log.Printf("[Seed] Inserting %d demo calls...", seedCount)

	for i := 0; i < seedCount; i++ {
		caller := randomPhone()

		c, err := call.New(fmt.Sprintf("CA%030d", rand.Intn(1_000_000_000)), caller, cfg.Flow.EnglishPrefixes)
		if err != nil {
			log.Fatalf("[Seed] Failed to build call #%d: %v", i+1, err)
		}
		if err := calls.Save(ctx, c); err != nil {
			log.Fatalf("[Seed] Failed to save call #%d: %v", i+1, err)
		}

		greeting := conversation.New(c.ID, "greeting", "", prompts.Greeting(c.Language))
		if err := convs.Append(ctx, greeting); err != nil {
			log.Fatalf("[Seed] Failed to log greeting for call #%d: %v", i+1, err)
		}

		// Every other call also gets a looked-up order.
		if i%2 == 0 {
			num := fmt.Sprintf("%08d", rand.Intn(100_000_000))
			o := order.New(c.ID, num, order.StatusFound, "Seeded demo order")
			promised := time.Now().AddDate(0, 0, rand.Intn(60)-10)
			o.PromisedDeliveryDate = &promised

			if err := orders.Upsert(ctx, o); err != nil {
				log.Fatalf("[Seed] Failed to save order for call #%d: %v", i+1, err)
			}
		}

		log.Printf("[Seed] Created call #%d: id=%s from=%s", i+1, c.ID.String(), caller)
	}

	log.Printf("[Seed] Done. Inserted %d calls.", seedCount)
}

// randomPhone generates a fake caller number; roughly a third are
// English-prefix numbers so both languages show up in the data.
func randomPhone() string {
	base := "+49"
	if rand.Intn(3) == 0 {
		base = "+1"
	}
	n := rand.Intn(900000000) + 100000000 // 9 digits
	return fmt.Sprintf("%s7%d", base, n)
}
