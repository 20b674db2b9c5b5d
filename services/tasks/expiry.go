package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"slotwise/config"
)

// TypeBookingExpire fires when a booking's modification deadline passes;
// the handler cancels the booking if it is still unconfirmed by then.
const TypeBookingExpire = "booking:expire"

// ExpiryPayload identifies the booking to check when the task fires.
type ExpiryPayload struct {
	BookingID string `json:"bookingId"`
}

// NewExpiryTask builds the delayed task for a scheduled booking.
func NewExpiryTask(bookingID string, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ExpiryPayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingExpire, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt)}
	return task, opts, nil
}

// Client enqueues expiry tasks on the Redis-backed queue.
type Client struct {
	inner *asynq.Client
}

// NewClient builds the enqueue client from the application config.
func NewClient() *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})}
}

// EnqueueExpiry schedules the auto-cancel check for fireAt.
func (c *Client) EnqueueExpiry(ctx context.Context, bookingID string, fireAt time.Time) error {
	task, opts, err := NewExpiryTask(bookingID, fireAt)
	if err != nil {
		return err
	}
	_, err = c.inner.EnqueueContext(ctx, task, opts...)
	return err
}

// Close releases the underlying queue connection.
func (c *Client) Close() error {
	return c.inner.Close()
}
