package brief

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/feeds"
	"golang.org/x/sync/singleflight"

	"github.com/cryptobrief/internal/circuitbreaker"
	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/logging"
	"github.com/cryptobrief/internal/models"
)

// Lister fetches the workspace file listing
type Lister interface {
	ListFiles(ctx context.Context) ([]models.WorkspaceFile, error)
}

// Downloader opens a file's bytes
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Source is implemented by an upstream client that can both list and download
type Source interface {
	Lister
	Downloader
}

// Service answers brief requests. Concurrent listings are coalesced into
// one upstream call; failures are returned as-is, never retried.
type Service struct {
	source  Source
	breaker *circuitbreaker.CircuitBreaker
	group   singleflight.Group
}

// NewService creates a brief service. breaker may be nil.
func NewService(source Source, breaker *circuitbreaker.CircuitBreaker) *Service {
	return &Service{source: source, breaker: breaker}
}

// List returns the raw listing
func (s *Service) List(ctx context.Context) ([]models.WorkspaceFile, error) {
	// The shared call must not die with whichever caller started it
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan("list", func() (interface{}, error) {
		var files []models.WorkspaceFile
		err := s.guard(shared, func(ctx context.Context) error {
			var err error
			files, err = s.source.ListFiles(ctx)
			return err
		})
		return files, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.WorkspaceFile), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LatestPDF returns the newest PDF or a not-found error
func (s *Service) LatestPDF(ctx context.Context) (*models.WorkspaceFile, error) {
	files, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	file, ok := SelectLatestPDF(files)
	if !ok {
		return nil, apperrors.NewNotFoundError("NO_PDF", NoPDFMessage)
	}
	return &file, nil
}

// OpenLatest opens the newest PDF for streaming. The caller closes the reader.
func (s *Service) OpenLatest(ctx context.Context) (*models.WorkspaceFile, io.ReadCloser, int64, error) {
	file, err := s.LatestPDF(ctx)
	if err != nil {
		return nil, nil, 0, err
	}

	var (
		body io.ReadCloser
		size int64
	)
	err = s.guard(ctx, func(ctx context.Context) error {
		var err error
		body, size, err = s.source.Download(ctx, file.FullURL)
		return err
	})
	if err != nil {
		return nil, nil, 0, err
	}
	return file, body, size, nil
}

// Feed builds an Atom-ready feed of every PDF, newest first
func (s *Service) Feed(ctx context.Context, title, link string) (*feeds.Feed, error) {
	files, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "Daily crypto market briefs",
	}

	var newest time.Time
	for _, f := range PDFsNewestFirst(files) {
		item := &feeds.Item{
			Id:    fmt.Sprintf("brief-%d", f.ID),
			Title: f.Name(),
			Link:  &feeds.Link{Href: f.FullURL, Type: "application/pdf"},
		}
		if f.CreatedAt != nil {
			item.Created = *f.CreatedAt
			if f.CreatedAt.After(newest) {
				newest = *f.CreatedAt
			}
		}
		feed.Items = append(feed.Items, item)
	}
	feed.Updated = newest

	return feed, nil
}

func (s *Service) guard(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	err := s.breaker.Execute(ctx, fn)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		logging.FromContext(ctx).WithField("upstream", "openserv").Warn("Brief upstream short-circuited")
		return apperrors.NewServiceUnavailableError("openserv")
	}
	return err
}
