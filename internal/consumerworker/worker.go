package consumerworker

import (
	"context"
	"encoding/json"

	"campusbooker/internal/dto"
	"campusbooker/internal/mailer"
	"campusbooker/internal/rabbit"

	"github.com/wb-go/wbf/zlog"
)

// Reader consumes booking-confirmed messages and sends notification emails.
type Reader struct {
	RMQ    *rabbit.Client
	smtp   mailer.SMTPConfig
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, smtp mailer.SMTPConfig) *Reader {
	return &Reader{
		RMQ:  rmq,
		smtp: smtp,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("RabbitMQ Reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.BookingConfirmedMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal message: %s", string(body))
				// Malformed messages are dropped, requeueing would loop forever.
				return nil
			}

			zlog.Logger.Info().
				Int64("room_id", msg.RoomID).
				Str("email", msg.Email).
				Msg("Received booking-confirmed message")

			if msg.Email == "" {
				zlog.Logger.Info().
					Int64("room_id", msg.RoomID).
					Msg("No recipient email in message, skipping")
				return nil
			}

			if err := mailer.SendBookingConfirmedEmail(
				&zlog.Logger,
				r.smtp,
				msg.UserName,
				msg.RoomName,
				msg.Email,
				msg.StartTime,
			); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Str("email", msg.Email).
					Msg("Failed to send booking confirmation email")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("RabbitMQ Reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
