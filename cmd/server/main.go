// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/leadzap/leadzap-backend/internal/channel"
	"github.com/leadzap/leadzap-backend/internal/controller"
	"github.com/leadzap/leadzap-backend/internal/db"
	"github.com/leadzap/leadzap-backend/internal/handler"
	"github.com/leadzap/leadzap-backend/internal/llm"
	"github.com/leadzap/leadzap-backend/internal/queue"
	"github.com/leadzap/leadzap-backend/internal/repository"
	"github.com/leadzap/leadzap-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	// Init DB
	db.Init()

	// Repositories
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

	// Events: RabbitMQ when configured, in-memory otherwise
	var events queue.Publisher
	if url := os.Getenv("AMQP_URL"); url != "" {
		amqpPub, err := queue.NewAMQPPublisher(url)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer amqpPub.Close()
		events = amqpPub
	} else {
		log.Println("⚠️ AMQP_URL not set, using in-memory events")
		events = queue.NewInMemoryQueue()
	}

	// Channel adapters
	channels := channel.NewRegistry(1, 3)
	channels.Register("whatsapp", channel.NewWhatsAppCloudAdapter())
	channels.Register("telegram", channel.NewTelegramAdapter())

	// Message composer with two-tier generation credentials
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

	handoffService := &service.HandoffService{
		ConvRepo:    convRepo,
		AttemptRepo: attemptRepo,
		Events:      events,
	}

	followUpController := &controller.FollowUpController{
		RuleRepo:        ruleRepo,
		FollowUpService: followUpService,
	}

	conversationHandler := &handler.ConversationHandler{
		ConvRepo: convRepo,
		Handoff:  handoffService,
	}

	r := chi.NewRouter()

	// Follow-up rule routes
	r.Post("/rules", followUpController.CreateRule)
	r.Get("/rules", followUpController.ListRules)
	r.Get("/rules/{id}", followUpController.GetRule)
	r.Put("/rules/{id}", followUpController.UpdateRule)
	r.Post("/rules/{id}/active", followUpController.SetRuleActive)

	// Scheduler trigger
	r.Post("/followups/run", followUpController.RunFollowUps)

	// Conversation routes
	r.Get("/conversations", conversationHandler.ListConversations)
	r.Get("/conversations/{id}", conversationHandler.GetConversation)
	r.Post("/conversations/{id}/enable-agent", conversationHandler.EnableAgent)
	r.Post("/conversations/{id}/take-over", conversationHandler.TakeOver)
	r.Post("/conversations/{id}/release", conversationHandler.Release)
	r.Post("/conversations/{id}/close", conversationHandler.CloseConversation)
	r.Post("/conversations/{id}/reopen", conversationHandler.ReopenConversation)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("🚀 Server running on :" + port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
