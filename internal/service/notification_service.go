package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/dto"
	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/observability"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/pkg/mailer"
)

const (
	notificationBufferSize = 16
	// recentNotificationWindow bounds how many delivered ids are remembered
	// for broker de-duplication.
	recentNotificationWindow = 512
)

// ErrNotificationNotFound indicates the notification does not exist for the caller.
var ErrNotificationNotFound = errors.New("notification not found")

// Notification types emitted by the workflow.
const (
	NotificationAssignmentSubmitted = "assignment.submitted"
	NotificationAssignmentReviewed  = "assignment.reviewed"
	NotificationAssignmentPublished = "assignment.published"
)

// NotificationEvent describes something a user should hear about.
type NotificationEvent struct {
	Type         string
	AssignmentID string
	RecipientID  uint
	Title        string
	Status       string
}

// Notifier dispatches workflow notifications. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent)
}

// EmailSender delivers notification e-mails.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, msg mailer.Message) error
}

// NotificationService persists notifications and fans them out to live streams,
// the message brokers and e-mail.
type NotificationService interface {
	Notifier
	List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, id uint, userID uint) (dto.NotificationResponse, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	users       repository.UserRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	email       EmailSender
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
	delivered   *recentIDs
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service. Redis, NATS and
// e-mail are optional.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, email EmailSender, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		users:       users,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		email:       email,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/portfolio-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID:    uuid.NewString(),
		delivered: newRecentIDs(recentNotificationWindow),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notificationService) Notify(ctx context.Context, event NotificationEvent) {
	if event.RecipientID == 0 {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("notification.user_id", int(event.RecipientID)),
		attribute.String("notification.type", event.Type),
		attribute.String("notification.assignment_id", event.AssignmentID),
	}
	spanCtx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(attrs...))
	defer span.End()

	event.Title = strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(event.Title)))
	message := notificationMessage(event)
	model := models.Notification{
		UserID:       event.RecipientID,
		Type:         event.Type,
		AssignmentID: event.AssignmentID,
		Message:      message,
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Str("assignment_id", event.AssignmentID).Msg("failed to persist notification")
		return
	}

	response := dto.NewNotificationResponse(model)
	s.broadcast(response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}
	s.sendEmail(spanCtx, event, message)

	observability.NotificationsPublishedTotal().WithLabelValues(response.Type).Inc()
}

func (s *notificationService) List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error) {
	if userID == 0 {
		return dto.NotificationListResponse{}, errors.New("user id is required")
	}

	notifications, err := s.repo.ListByUser(ctx, repository.NotificationQuery{
		UserID:     userID,
		UnreadOnly: query.UnreadOnly,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	return dto.NotificationListResponse{
		Items:  dto.NewNotificationResponseSlice(notifications),
		Unread: unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID uint) (dto.NotificationResponse, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("notification.user_id", int(userID)),
	}
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(attrs...))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userID, channel)
	observability.NotificationStreamsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(userID, channel)
			observability.NotificationStreamsActive().Dec()
		})
	}

	return channel, cleanup
}

func (s *notificationService) sendEmail(ctx context.Context, event NotificationEvent, message string) {
	if s.email == nil || !s.email.Enabled() || s.users == nil {
		return
	}

	user, err := s.users.GetByID(ctx, event.RecipientID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", event.RecipientID).Msg("notification recipient lookup failed")
		return
	}
	if strings.TrimSpace(user.Email) == "" {
		return
	}

	err = s.email.Send(ctx, mailer.Message{
		ToName:      user.Name,
		ToAddress:   user.Email,
		Subject:     notificationSubject(event),
		TextContent: message,
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", event.RecipientID).Str("email", maskEmailAddress(user.Email)).Msg("failed to send notification email")
		return
	}
	s.logger.Debug().Str("email", maskEmailAddress(user.Email)).Str("type", event.Type).Msg("notification email sent")
}

func notificationSubject(event NotificationEvent) string {
	switch event.Type {
	case NotificationAssignmentSubmitted:
		return "New portfolio submission"
	case NotificationAssignmentPublished:
		return "Your work is on your portfolio"
	default:
		return "Your portfolio submission was reviewed"
	}
}

func notificationMessage(event NotificationEvent) string {
	title := strings.TrimSpace(event.Title)
	if title == "" {
		title = "an assignment"
	} else {
		title = fmt.Sprintf("%q", title)
	}

	switch event.Type {
	case NotificationAssignmentSubmitted:
		return fmt.Sprintf("A student submitted %s for review.", title)
	case NotificationAssignmentPublished:
		return fmt.Sprintf("%s is now published on your portfolio.", capitalizeFirst(title))
	case NotificationAssignmentReviewed:
		switch event.Status {
		case "APPROVED":
			return fmt.Sprintf("Your teacher approved %s.", title)
		case "NEEDS_REVISION":
			return fmt.Sprintf("Your teacher asked for changes to %s.", title)
		case "REJECTED":
			return fmt.Sprintf("Your teacher did not accept %s.", title)
		case "UNDER_REVIEW":
			return fmt.Sprintf("Your teacher started reviewing %s.", title)
		}
	}
	return fmt.Sprintf("There is an update on %s.", title)
}

func capitalizeFirst(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

func (s *notificationService) broadcast(notification dto.NotificationResponse) {
	s.broker.broadcast(notification.UserID, notification)
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// One broker carries each event: NATS when connected, Redis otherwise or
	// when the NATS publish fails.
	if s.nats != nil && s.natsSubject != "" {
		err := s.nats.Publish(s.natsSubject, payload)
		if err == nil {
			return nil
		}
		if s.redis == nil || s.redisStream == "" {
			return err
		}
		s.logger.Warn().Err(err).Msg("nats publish failed, falling back to redis")
	}

	if s.redis != nil && s.redisStream != "" {
		return s.redis.Publish(ctx, s.redisStream, payload).Err()
	}
	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}
	if id := event.Notification.ID; id != 0 && !s.delivered.add(id) {
		return
	}

	s.broadcast(event.Notification)
}

// recentIDs remembers the last n notification ids so an event arriving over
// both brokers reaches subscribers once.
type recentIDs struct {
	mu    sync.Mutex
	seen  map[uint]struct{}
	order []uint
	next  int
}

func newRecentIDs(n int) *recentIDs {
	return &recentIDs{seen: make(map[uint]struct{}, n), order: make([]uint, n)}
}

// add records id and reports whether it was new.
func (r *recentIDs) add(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[id]; ok {
		return false
	}
	if evicted := r.order[r.next]; evicted != 0 {
		delete(r.seen, evicted)
	}
	r.order[r.next] = id
	r.next = (r.next + 1) % len(r.order)
	r.seen[id] = struct{}{}
	return true
}

func (b *notificationBroker) subscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *notificationBroker) broadcast(userID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- notification:
		default:
		}
	}
}
