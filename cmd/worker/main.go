package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/brainwave-ai/gateway/internal/ai"
	"github.com/brainwave-ai/gateway/internal/config"
	"github.com/brainwave-ai/gateway/internal/ingest"
	"github.com/brainwave-ai/gateway/internal/supabase"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	supa, err := supabase.New(supabase.Config{
		URL:        cfg.SupabaseURL,
		ServiceKey: cfg.SupabaseServiceKey,
	})
	if err != nil {
		log.Fatalf("supabase client: %v", err)
	}

	provider := ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIOrg)
	processor := ingest.NewProcessor(supa, provider, cfg.EmbedModel)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	mainQ := cfg.RabbitQueue
	retryQ := cfg.RabbitQueue + ".retry"

	if _, err := ch.QueueDeclare(mainQ, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": mainQ + ".dlq",
	}); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	// strict concurrency control
	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(mainQ, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", mainQ, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var job ingest.Job
				if err := json.Unmarshal(d.Body, &job); err != nil || job.DocumentID == 0 {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				err := processor.Process(ctx, job)
				if err == nil {
					if err := d.Ack(false); err != nil {
						log.Printf("worker=%d ack failed job=%s err=%v", workerID, job.ID, err)
					}
					continue
				}

				if errors.Is(err, ingest.ErrContentNotReady) {
					// The upload has not landed; park the message on the
					// retry queue and let its TTL feed it back.
					if pubErr := republish(ctx, ch, retryQ, d.Body); pubErr != nil {
						log.Printf("worker=%d retry publish failed job=%s err=%v", workerID, job.ID, pubErr)
						_ = d.Nack(false, false)
						continue
					}
					_ = d.Ack(false)
					continue
				}

				log.Printf("worker=%d job %s failed cost=%s err=%v", workerID, job.ID, time.Since(start), err)
				_ = d.Nack(false, false)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func republish(ctx context.Context, ch *amqp.Channel, queue string, body []byte) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(cctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	})
}
