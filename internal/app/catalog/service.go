// Package catalog keeps the registry of media the scheduler can place:
// uploaded files with their source keys and probed durations. Upload and
// storage themselves live elsewhere; only the metadata is owned here.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nuid"

	"github.com/playout-hub/scheduler/internal/contracts"
)

var ErrSourceKeyRequired = errors.New("source_key is required")
var ErrInvalidDuration = errors.New("duration_seconds must be positive")
var ErrMediaNotFound = errors.New("media item not found")

type Repository interface {
	InsertMedia(ctx context.Context, item contracts.MediaItem) error
	ListMedia(ctx context.Context) ([]contracts.MediaItem, error)
	GetMedia(ctx context.Context, mediaID string) (contracts.MediaItem, error)
}

type Service struct {
	Repo  Repository
	Now   func() time.Time
	NewID func() string
}

func NewService(repo Repository) *Service {
	return &Service{
		Repo:  repo,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: nuid.Next,
	}
}

type RegisterRequest struct {
	SourceKey       string `json:"source_key"`
	FileName        string `json:"file_name"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// Register records a new media item's metadata after its upload completed.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (contracts.MediaItem, error) {
	sourceKey := strings.TrimSpace(req.SourceKey)
	if sourceKey == "" {
		return contracts.MediaItem{}, ErrSourceKeyRequired
	}
	if req.DurationSeconds <= 0 {
		return contracts.MediaItem{}, ErrInvalidDuration
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		if i := strings.LastIndex(sourceKey, "/"); i >= 0 {
			fileName = sourceKey[i+1:]
		} else {
			fileName = sourceKey
		}
	}

	item := contracts.MediaItem{
		MediaID:         s.NewID(),
		SourceKey:       sourceKey,
		FileName:        fileName,
		DurationSeconds: req.DurationSeconds,
		UploadedAt:      s.Now(),
	}
	if err := s.Repo.InsertMedia(ctx, item); err != nil {
		return contracts.MediaItem{}, err
	}
	return item, nil
}

func (s *Service) List(ctx context.Context) ([]contracts.MediaItem, error) {
	return s.Repo.ListMedia(ctx)
}

func (s *Service) Get(ctx context.Context, mediaID string) (contracts.MediaItem, error) {
	return s.Repo.GetMedia(ctx, mediaID)
}
