package brief

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cryptobrief/internal/circuitbreaker"
	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	files    []models.WorkspaceFile
	err      error
	calls    atomic.Int32
	release  chan struct{}
	download string
}

func (f *fakeSource) ListFiles(ctx context.Context) ([]models.WorkspaceFile, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.files, f.err
}

func (f *fakeSource) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	f.download = url
	return io.NopCloser(strings.NewReader("%PDF-1.7")), 8, nil
}

func TestSelectLatestPDF_OnePDFAmongThree(t *testing.T) {
	files := []models.WorkspaceFile{
		{ID: 9, Path: "notes/summary.md", FullURL: "https://files/9"},
		{ID: 7, Path: "briefs/daily.pdf", FullURL: "https://files/7"},
		{ID: 12, Path: "data/prices.csv", FullURL: "https://files/12"},
	}

	got, ok := SelectLatestPDF(files)
	require.True(t, ok)
	assert.Equal(t, "https://files/7", got.FullURL)
}

func TestSelectLatestPDF_HighestIDCaseInsensitive(t *testing.T) {
	files := []models.WorkspaceFile{
		{ID: 3, Path: "a.pdf", FullURL: "u3"},
		{ID: 11, Path: "b.PDF", FullURL: "u11"},
		{ID: 5, Path: "c.Pdf", FullURL: "u5"},
	}

	got, ok := SelectLatestPDF(files)
	require.True(t, ok)
	assert.Equal(t, models.FileID(11), got.ID)

	ordered := PDFsNewestFirst(files)
	require.Len(t, ordered, 3)
	assert.Equal(t, []models.FileID{11, 5, 3}, []models.FileID{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestSelectLatestPDF_None(t *testing.T) {
	_, ok := SelectLatestPDF([]models.WorkspaceFile{{ID: 1, Path: "pdf"}, {ID: 2, Path: "x.pdf.txt"}})
	assert.False(t, ok)
	_, ok = SelectLatestPDF(nil)
	assert.False(t, ok)
}

func TestService_LatestPDFNotFound(t *testing.T) {
	svc := NewService(&fakeSource{files: []models.WorkspaceFile{{ID: 1, Path: "readme.md"}}}, nil)

	_, err := svc.LatestPDF(context.Background())
	require.Error(t, err)
	catErr := apperrors.Categorize(err)
	assert.Equal(t, http.StatusNotFound, catErr.StatusCode)
	assert.Equal(t, NoPDFMessage, catErr.Message)
}

func TestService_CoalescesConcurrentListings(t *testing.T) {
	src := &fakeSource{
		files:   []models.WorkspaceFile{{ID: 4, Path: "brief.pdf", FullURL: "u4"}},
		release: make(chan struct{}),
	}
	svc := NewService(src, nil)

	var wg sync.WaitGroup
	results := make(chan string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := svc.LatestPDF(context.Background())
			if err == nil {
				results <- f.FullURL
			}
		}()
	}

	// Let the goroutines pile onto the in-flight call before releasing it
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()
	close(results)

	for url := range results {
		assert.Equal(t, "u4", url)
	}
	assert.LessOrEqual(t, src.calls.Load(), int32(5))
	assert.GreaterOrEqual(t, src.calls.Load(), int32(1))
}

func TestService_OpenCircuitFailsFast(t *testing.T) {
	upstream := apperrors.NewUpstreamStatusError("openserv", http.StatusBadGateway, "bad gateway")
	src := &fakeSource{err: upstream}
	breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
		Name:                "openserv",
		ConsecutiveFailures: 1,
		OpenTimeout:         time.Minute,
		IsFailure:           apperrors.IsUpstreamOutage,
	})
	svc := NewService(src, breaker)

	_, err := svc.LatestPDF(context.Background())
	assert.True(t, errors.Is(err, upstream))

	_, err = svc.LatestPDF(context.Background())
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.GetHTTPStatusCode(err))
	assert.Equal(t, int32(1), src.calls.Load(), "no call while open")
}

func TestService_OpenLatestStreamsSelectedFile(t *testing.T) {
	src := &fakeSource{files: []models.WorkspaceFile{
		{ID: 2, Path: "old.pdf", FullURL: "u2"},
		{ID: 8, Path: "new.pdf", FullURL: "u8"},
	}}
	svc := NewService(src, nil)

	file, body, size, err := svc.OpenLatest(context.Background())
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, "new.pdf", file.Name())
	assert.Equal(t, "u8", src.download)
	assert.Equal(t, int64(8), size)
}

func TestService_Feed(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	src := &fakeSource{files: []models.WorkspaceFile{
		{ID: 2, Path: "briefs/2026-02-28.pdf", FullURL: "u2"},
		{ID: 3, Path: "briefs/2026-03-01.pdf", FullURL: "u3", CreatedAt: &created},
		{ID: 4, Path: "briefs/notes.txt", FullURL: "u4"},
	}}
	svc := NewService(src, nil)

	feed, err := svc.Feed(context.Background(), "Daily Brief", "https://example.com")
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "2026-03-01.pdf", feed.Items[0].Title)
	assert.Equal(t, created, feed.Updated)

	atom, err := feed.ToAtom()
	require.NoError(t, err)
	assert.Contains(t, atom, "u3")
}
