package cron

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"slotwise/config"
	"slotwise/models"
	"slotwise/services/booking"
	"slotwise/services/tasks"
)

// InitExpiryWorker runs the async worker in background. It consumes
// booking:expire tasks and cancels bookings that are still unconfirmed once
// their modification deadline has passed.
func InitExpiryWorker(bookingSvc *booking.Service) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: config.AppConfig.WorkerConcurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingExpire, handleExpiryTask(bookingSvc))

	// Start async worker with retry logic
	go func() {
		log.Println("[ExpiryWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ExpiryWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ExpiryWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleExpiryTask(bookingSvc *booking.Service) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.ExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ExpiryHandler] invalid payload: %v", err)
			return err
		}

		state, err := bookingSvc.State(ctx, p.BookingID)
		if err != nil {
			log.Printf("[ExpiryHandler] could not resolve booking %s: %v", p.BookingID, err)
			return err
		}
		if state != models.StateScheduled {
			// Confirmed, canceled or already back to pending: nothing to do.
			return nil
		}

		log.Printf("[ExpiryHandler] canceling unconfirmed booking %s past its deadline", p.BookingID)
		// The deadline guard must not block the system itself.
		err = bookingSvc.Cancel(ctx, p.BookingID, booking.Actor{Manager: true})
		if err != nil && !errors.Is(err, booking.ErrForbidden) {
			return err
		}
		return nil
	}
}
