// Package mailer доставляет письма пользователям в фоне. Бизнес-операции только ставят письмо в очередь,
// ошибки доставки логируются и не влияют на операцию.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/metrics"
	"github.com/fsdevblog/guestmart/internal/transport/mailer/client"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultQueueSize      = 256
	defaultWorkers        = 4
	defaultMaxAttempts    = 3
	defaultServiceTimeout = 3 * time.Second
	defaultAPITimeout     = 10 * time.Second
)

type Config struct {
	// Address адрес API провайдера. Пустой APIKey переводит диспетчер в режим логирования писем.
	Address string
	APIKey  string
	From    string
	AppURL  string
}

// Dispatcher очередь писем с пулом воркеров.
type Dispatcher struct {
	sender      Sender
	users       UserGetter
	from        string
	appURL      string
	templates   map[domain.NotificationKind]emailTemplate
	queue       chan domain.Notification
	workers     int
	maxAttempts int
	l           *logrus.Entry
}

// New создает диспетчер. Если в конфигурации не задан ключ API, письма только логируются.
func New(users UserGetter, cfg Config, l *logrus.Logger) (*Dispatcher, error) {
	var sender Sender
	if cfg.APIKey != "" {
		sender = client.New(cfg.Address, cfg.APIKey)
	}
	return NewWithSender(sender, users, cfg, l)
}

// NewWithSender создает диспетчер с заданным отправителем. nil sender включает режим логирования.
func NewWithSender(sender Sender, users UserGetter, cfg Config, l *logrus.Logger) (*Dispatcher, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	return &Dispatcher{
		sender:    sender,
		users:     users,
		from:      cfg.From,
		appURL:    cfg.AppURL,
		templates: templates,
		queue:     make(chan domain.Notification, defaultQueueSize),
		workers:   defaultWorkers,
		l: l.WithFields(logrus.Fields{
			"component": "mailer",
			"module":    "dispatcher",
		}),
		maxAttempts: defaultMaxAttempts,
	}, nil
}

// SetWorkers устанавливает кол-во воркеров отправки.
func (d *Dispatcher) SetWorkers(workers int) *Dispatcher {
	d.workers = max(workers, 1)
	return d
}

// SetQueueSize устанавливает размер очереди. Вызывается до Run.
func (d *Dispatcher) SetQueueSize(size int) *Dispatcher {
	d.queue = make(chan domain.Notification, max(size, 1))
	return d
}

// Notify ставит письмо в очередь. Никогда не блокирует: при переполненной очереди письмо отбрасывается.
func (d *Dispatcher) Notify(n domain.Notification) {
	select {
	case d.queue <- n:
		metrics.MailQueueDepth.Set(float64(len(d.queue)))
	default:
		metrics.MailDropped.Inc()
		d.l.WithFields(logrus.Fields{
			"kind":   n.Kind,
			"userID": n.UserID,
		}).Warn("mail queue is full, notification dropped")
	}
}

// Run запускает воркеров и ждет отмены контекста. Письма, оставшиеся в очереди после отмены, не отправляются.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.l.WithFields(logrus.Fields{
		"workers":  d.workers,
		"logOnly":  d.sender == nil,
		"capacity": cap(d.queue),
	}).Info("Starting")

	g, gCtx := errgroup.WithContext(ctx)
	for i := range d.workers {
		g.Go(func() error {
			d.worker(gCtx, i+1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	if pending := len(d.queue); pending > 0 {
		d.l.WithField("pending", pending).Warn("stopped with undelivered notifications")
	}
	d.l.Info("Got stop signal, exiting...")
	return nil
}

// Drain синхронно доставляет письма, уже стоящие в очереди. Используется разовыми командами, которые
// не запускают Run. Возвращает кол-во обработанных писем.
func (d *Dispatcher) Drain(ctx context.Context) int {
	var processed int
	for {
		select {
		case <-ctx.Done():
			return processed
		case n := <-d.queue:
			result := d.deliver(ctx, n)
			metrics.MailSent.WithLabelValues(string(n.Kind), result).Inc()
			processed++
		default:
			metrics.MailQueueDepth.Set(0)
			return processed
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			metrics.MailQueueDepth.Set(float64(len(d.queue)))
			result := d.deliver(ctx, n)
			metrics.MailSent.WithLabelValues(string(n.Kind), result).Inc()
			d.l.WithFields(logrus.Fields{
				"worker": workerID,
				"kind":   n.Kind,
				"userID": n.UserID,
				"result": result,
			}).Debug("notification processed")
		}
	}
}

// Результаты доставки для метрики.
const (
	resultSent    = "sent"
	resultLogged  = "logged"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

// deliver находит получателя, формирует письмо и отправляет его. Ответ 429 повторяется после паузы из
// Retry-After, не более maxAttempts попыток.
func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) string {
	l := d.l.WithFields(logrus.Fields{"kind": n.Kind, "userID": n.UserID})

	tpl, ok := d.templates[n.Kind]
	if !ok {
		l.Error("no template for notification")
		return resultSkipped
	}

	userCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	user, err := d.users.Get(userCtx, n.UserID)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			l.Warn("recipient not found")
			return resultSkipped
		}
		l.WithError(err).Error("lookup recipient")
		return resultFailed
	}

	subject, html, err := tpl.render(templateData(n, user, d.appURL))
	if err != nil {
		l.WithError(err).Error("render email")
		return resultFailed
	}

	if d.sender == nil {
		l.WithFields(logrus.Fields{"to": user.Email, "subject": subject}).Info("mailer api key is not set, email not sent")
		return resultLogged
	}

	email := client.Email{From: d.from, To: []string{user.Email}, Subject: subject, HTML: html}
	for attempt := 1; ; attempt++ {
		sendCtx, sendCancel := context.WithTimeout(ctx, defaultAPITimeout)
		id, sendErr := d.sender.Send(sendCtx, email)
		sendCancel()

		if sendErr == nil {
			l.WithFields(logrus.Fields{"to": user.Email, "id": id}).Info("email sent")
			return resultSent
		}

		var tooManyReq *client.TooManyRequestError
		if !errors.As(sendErr, &tooManyReq) || attempt >= d.maxAttempts {
			l.WithError(sendErr).WithField("attempt", attempt).Error("send email")
			return resultFailed
		}

		// Проверяем отмену контекста перед спячкой
		select {
		case <-ctx.Done():
			return resultFailed
		case <-time.After(tooManyReq.RetryAfter):
		}
	}
}
