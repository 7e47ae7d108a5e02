package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/brainwave-ai/gateway/internal/ai"
	"github.com/brainwave-ai/gateway/internal/config"
	"github.com/brainwave-ai/gateway/internal/httpapi"
	"github.com/brainwave-ai/gateway/internal/httpapi/handlers"
	"github.com/brainwave-ai/gateway/internal/identity"
	"github.com/brainwave-ai/gateway/internal/retrieval"
	"github.com/brainwave-ai/gateway/internal/store/rabbitmq"
	"github.com/brainwave-ai/gateway/internal/store/redisstore"
	"github.com/brainwave-ai/gateway/internal/supabase"
	"github.com/brainwave-ai/gateway/internal/sysconfig"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	rds := redisstore.Shared(redisstore.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	supa, err := supabase.New(supabase.Config{
		URL:        cfg.SupabaseURL,
		ServiceKey: cfg.SupabaseServiceKey,
	})
	if err != nil {
		log.Fatalf("supabase client: %v", err)
	}

	resolver := identity.NewResolver(supa, rds, cfg.SupabaseJWTSecret)
	sysCfg := sysconfig.NewService(supa, rds)

	provider := ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIOrg)

	retr, err := retrieval.NewService(provider, supa, resolver, cfg.EmbedModel)
	if err != nil {
		log.Fatalf("retrieval service: %v", err)
	}

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer pub.Close()

	h := handlers.NewHandler(cfg, resolver, retr, provider, supa, pub)
	r := httpapi.NewRouter(h, resolver, rds, sysCfg)

	log.Printf("gateway listening port=%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
