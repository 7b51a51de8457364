// cmd/scheduler/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/leadzap/leadzap-backend/internal/channel"
	"github.com/leadzap/leadzap-backend/internal/db"
	"github.com/leadzap/leadzap-backend/internal/llm"
	"github.com/leadzap/leadzap-backend/internal/queue"
	"github.com/leadzap/leadzap-backend/internal/repository"
	"github.com/leadzap/leadzap-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	db.Init()

	ruleRepo := &repository.RuleRepository{DB: db.DB}
	convRepo := &repository.ConversationRepository{DB: db.DB}
	messageRepo := &repository.MessageRepository{DB: db.DB}
	attemptRepo := &repository.AttemptRepository{DB: db.DB}
	callbackRepo := &repository.CallbackRepository{DB: db.DB}
	stageRepo := &repository.StageRepository{DB: db.DB}
	connRepo := &repository.ConnectionRepository{DB: db.DB}
	contactRepo := &repository.ContactRepository{DB: db.DB}
	deliveryRepo := &repository.DeliveryRepository{DB: db.DB}
	tenantRepo := &repository.TenantRepository{DB: db.DB}

	var events queue.Publisher
	if url := os.Getenv("AMQP_URL"); url != "" {
		amqpPub, err := queue.NewAMQPPublisher(url)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer amqpPub.Close()
		events = amqpPub
	} else {
		log.Println("⚠️ AMQP_URL not set, follow-up events will stay in-process")
		events = queue.NewInMemoryQueue()
	}

	channels := channel.NewRegistry(1, 3)
	channels.Register("whatsapp", channel.NewWhatsAppCloudAdapter())
	channels.Register("telegram", channel.NewTelegramAdapter())

	composer := &service.MessageComposer{
		MessageRepo: messageRepo,
		ContactRepo: contactRepo,
		Resolver: &llm.DBCredentialResolver{
			Tenants:     tenantRepo,
			FallbackKey: os.Getenv("OPENAI_FALLBACK_API_KEY"),
		},
		NewGenerator: func(apiKey string) llm.Generator {
			return llm.NewClient(os.Getenv("OPENAI_BASE_URL"), apiKey, os.Getenv("OPENAI_MODEL"))
		},
	}

	followUpService := &service.FollowUpService{
		RuleRepo:     ruleRepo,
		ConvRepo:     convRepo,
		MessageRepo:  messageRepo,
		AttemptRepo:  attemptRepo,
		CallbackRepo: callbackRepo,
		StageRepo:    stageRepo,
		ConnRepo:     connRepo,
		ContactRepo:  contactRepo,
		DeliveryRepo: deliveryRepo,
		Composer:     composer,
		Channels:     channels,
		Events:       events,
	}

	spec := os.Getenv("FOLLOWUP_CRON")
	if spec == "" {
		spec = "*/5 * * * *"
	}

	// Overlap guard: a sweep that outlives its tick makes the next
	// tick a no-op instead of stacking runs.
	var running sync.Mutex

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if !running.TryLock() {
			log.Println("⚠️ Previous sweep still running, skipping this tick")
			return
		}
		defer running.Unlock()

		result, err := followUpService.Run(context.Background())
		if err != nil {
			log.Println("❌ Follow-up sweep failed:", err)
			return
		}
		log.Printf("✅ Follow-up sweep done: %d sent, skipped: %v\n", result.SentCount, result.Skipped)
	})
	if err != nil {
		log.Fatal("Invalid FOLLOWUP_CRON expression:", err)
	}

	c.Start()
	log.Println("🚀 Follow-up scheduler running, cron:", spec)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down scheduler...")
	<-c.Stop().Done()
}
