package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/config"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/helpers"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			handle(logger, mg, msg)
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down...")
	if !drain(ch, done, drainTimeout) {
		logger.Warn("deliveries still in flight at exit; they will be redelivered")
	}
}

const (
	consumerTag = "email-worker"
	// longer than one send, so the delivery in progress can finish
	drainTimeout = 20 * time.Second
)

// canceler is the part of *amqp.Channel needed to stop consuming.
type canceler interface {
	Cancel(consumer string, noWait bool) error
}

// drain stops new deliveries and waits for the consume loop to finish the
// ones already received. Cancelling closes the deliveries channel, which ends
// the loop and closes done. It reports whether the loop finished in time.
func drain(ch canceler, done <-chan struct{}, timeout time.Duration) bool {
	if err := ch.Cancel(consumerTag, false); err != nil {
		return false
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// handle acks delivered mail, drops jobs that can never succeed and requeues
// everything else.
func handle(logger *logrus.Logger, s mailer.Sender, msg amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		helpers.LogError(logger, "bad message", err, nil)
		_ = msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fields := logrus.Fields{"template": job.Template}
	if err := mailer.Deliver(ctx, s, job); err != nil {
		helpers.LogError(logger, "send failed", err, fields)
		_ = msg.Nack(false, !errors.Is(err, mailer.ErrBadJob))
		return
	}
	helpers.LogInfo(logger, "email sent", fields)
	_ = msg.Ack(false)
}
