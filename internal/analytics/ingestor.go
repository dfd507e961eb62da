package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/convoke-ai/convoke/internal/store"
	"github.com/convoke-ai/convoke/internal/store/model"
	"github.com/convoke-ai/convoke/pkg/api"
)

// Record is one realized conversation handed over after a stream completes:
// the input turns, the concatenated reply and the model that produced it.
type Record struct {
	Provider  string
	Model     string
	RequestID string
	Turns     []api.Message
	Reply     string
}

// Ingestor persists conversation records asynchronously. The gateway never
// blocks on it and persistence failures never affect a response already
// delivered.
type Ingestor interface {
	Ingest(rec *Record)
	Start(ctx context.Context)
	Stop()
}

type ingestor struct {
	logger  *zap.Logger
	repo    store.Repository
	records chan *Record

	mu     sync.RWMutex
	closed bool
}

func NewIngestor(logger *zap.Logger, repo store.Repository) Ingestor {
	return &ingestor{
		logger:  logger,
		repo:    repo,
		records: make(chan *Record, 1024),
	}
}

func (i *ingestor) Ingest(rec *Record) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return
	}
	select {
	case i.records <- rec:
	default:
		i.logger.Warn("conversation buffer full, dropping record",
			zap.String("provider", rec.Provider),
			zap.String("request_id", rec.RequestID),
		)
	}
}

func (i *ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

func (i *ingestor) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.closed = true
	close(i.records)
}

func (i *ingestor) worker(ctx context.Context) {
	for {
		select {
		case rec, ok := <-i.records:
			if !ok {
				return
			}
			i.persist(rec)
		case <-ctx.Done():
			// Drain whatever is already buffered before shutting down.
			for {
				select {
				case rec, ok := <-i.records:
					if !ok {
						return
					}
					i.persist(rec)
				default:
					return
				}
			}
		}
	}
}

func (i *ingestor) persist(rec *Record) {
	// Detached context: request contexts are long gone by the time the
	// worker gets here.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	convs := i.repo.Conversations()
	now := time.Now().UTC()

	conv := &model.Conversation{
		ID:        uuid.NewString(),
		Provider:  rec.Provider,
		Model:     rec.Model,
		RequestID: rec.RequestID,
		CreatedAt: now,
	}
	if err := convs.Create(ctx, conv); err != nil {
		i.logger.Error("failed to persist conversation",
			zap.String("provider", rec.Provider),
			zap.Error(err),
		)
		return
	}

	for _, turn := range rec.Turns {
		msg := &model.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Role:           turn.Role,
			Content:        turn.Content,
			CreatedAt:      now,
		}
		if err := convs.AppendMessage(ctx, msg); err != nil {
			i.logger.Error("failed to persist message", zap.Error(err))
			return
		}
	}

	if rec.Reply != "" {
		if err := convs.AppendMessage(ctx, &model.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Role:           "assistant",
			Content:        rec.Reply,
			Model:          rec.Model,
			CreatedAt:      now,
		}); err != nil {
			i.logger.Error("failed to persist reply", zap.Error(err))
			return
		}
	}

	if err := convs.End(ctx, conv.ID, time.Now().UTC()); err != nil {
		i.logger.Error("failed to close conversation", zap.Error(err))
	}
}
