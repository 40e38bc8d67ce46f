package imagegen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforgehq/cardforge/app/models"
	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
	"github.com/cardforgehq/cardforge/internal/pkg/credits"
	"github.com/cardforgehq/cardforge/internal/pkg/falai"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	results []*falai.Result
	errs    []error
}

func (f *fakeGenerator) Generate(ctx context.Context, input falai.GenerateInput, onUpdate func(falai.QueueUpdate)) (*falai.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if onUpdate != nil {
		onUpdate(falai.QueueUpdate{Status: falai.StatusCompleted})
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.results) {
		return f.results[idx], nil
	}
	return f.results[len(f.results)-1], nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[key] = data
	return "https://cdn.test/" + key, nil
}

type fakeImageRepo struct {
	mu      sync.Mutex
	nextID  uint
	records []*models.ImageMetadata
}

func (f *fakeImageRepo) Create(img *models.ImageMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	img.ID = f.nextID
	f.records = append(f.records, img)
	return nil
}

func (f *fakeImageRepo) GetByID(id uint) (*models.ImageMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeImageRepo) GetRecentByUserID(userID string, limit int) ([]models.ImageMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ImageMetadata
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeImageRepo) GetRecent(limit int) ([]models.ImageMetadata, error) {
	return nil, nil
}

func (f *fakeImageRepo) CountByUserID(userID string) (int64, error) {
	imgs, _ := f.GetRecentByUserID(userID, 0)
	return int64(len(imgs)), nil
}

// pngBytes returns a real encoded image so the thumbnail path exercises the
// decoder.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 640, 360))))
	return buf.Bytes()
}

type fixture struct {
	svc    *Service
	gen    *fakeGenerator
	store  *fakeObjectStore
	images *fakeImageRepo
	ledger *credits.Ledger
	srv    *httptest.Server
}

func newFixture(t *testing.T, gen *fakeGenerator) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ledger := credits.NewLedger(client)

	img := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	t.Cleanup(srv.Close)

	store := &fakeObjectStore{}
	images := &fakeImageRepo{}
	svc := NewService(gen, store, images, ledger)
	svc.backoff = time.Millisecond

	return &fixture{svc: svc, gen: gen, store: store, images: images, ledger: ledger, srv: srv}
}

func (fx *fixture) providerResult(url string) *falai.Result {
	return &falai.Result{
		Images: []falai.Image{
			{URL: url, Width: 640, Height: 360, ContentType: "image/png"},
		},
		Seed:            7,
		HasNsfwConcepts: []bool{false},
		Prompt:          "a red dragon",
		Raw:             []byte(`{"seed":7}`),
	}
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	fx := newFixture(t, gen)
	gen.results = []*falai.Result{fx.providerResult(fx.srv.URL + "/out.png")}

	result, err := fx.svc.Generate(context.Background(), "auth0|u1", "a red dragon", "", nil)
	require.NoError(t, err)

	// The permanent URL is distinct from the provider's ephemeral URL.
	assert.NotEqual(t, result.ImageURL, result.BackblazeURL)
	assert.Contains(t, result.BackblazeURL, "https://cdn.test/generated/")
	assert.NotEmpty(t, result.ThumbnailURL)
	assert.Equal(t, int64(credits.DefaultBalance-GenerationCost), result.CreditsLeft)

	require.Len(t, fx.images.records, 1)
	record := fx.images.records[0]
	assert.Equal(t, "a red dragon", record.Prompt)
	assert.Equal(t, fx.srv.URL+"/out.png", record.ImageURL)
	assert.Equal(t, result.BackblazeURL, record.BackblazeURL)
	assert.Equal(t, 640, record.Width)
	assert.Equal(t, models.ImageSourceGenerated, record.Source)
	assert.Equal(t, result.MetadataID, record.ID)

	// Full image and thumbnail both landed in storage.
	assert.Len(t, fx.store.uploads, 2)
}

func TestGenerateNoImageProduced(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{results: []*falai.Result{{Images: nil, Raw: []byte(`{}`)}}}
	fx := newFixture(t, gen)

	_, err := fx.svc.Generate(context.Background(), "auth0|u1", "a red dragon", "", nil)
	assert.ErrorIs(t, err, apperr.ErrNoImageProduced)

	// No partial metadata record, and the spent credit was refunded.
	assert.Empty(t, fx.images.records)
	balance, err := fx.ledger.GetBalance(context.Background(), "auth0|u1")
	require.NoError(t, err)
	assert.Equal(t, int64(credits.DefaultBalance), balance)
}

func TestGenerateInsufficientCredits(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	fx := newFixture(t, gen)
	ctx := context.Background()

	// Drain the allowance first.
	_, err := fx.ledger.Spend(ctx, "auth0|poor", credits.DefaultBalance)
	require.NoError(t, err)

	_, err = fx.svc.Generate(ctx, "auth0|poor", "a red dragon", "", nil)
	assert.ErrorIs(t, err, apperr.ErrInsufficientCredits)
	// The provider was never called.
	assert.Zero(t, gen.calls)
}

func TestGenerateWithRetryRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{
		errs: []error{errors.New("connection reset"), errors.New("connection reset")},
	}
	fx := newFixture(t, gen)
	gen.results = []*falai.Result{nil, nil, fx.providerResult(fx.srv.URL + "/out.png")}

	result, err := fx.svc.GenerateWithRetry(context.Background(), "auth0|u1", "a red dragon", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls)
	assert.NotEmpty(t, result.BackblazeURL)

	// Two refunds plus one real spend: balance only reflects the success.
	balance, err := fx.ledger.GetBalance(context.Background(), "auth0|u1")
	require.NoError(t, err)
	assert.Equal(t, int64(credits.DefaultBalance-GenerationCost), balance)
}

func TestGenerateWithRetryDoesNotRetryNoImage(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{results: []*falai.Result{{Images: nil, Raw: []byte(`{}`)}}}
	fx := newFixture(t, gen)

	_, err := fx.svc.GenerateWithRetry(context.Background(), "auth0|u1", "a red dragon", "", nil)
	assert.ErrorIs(t, err, apperr.ErrNoImageProduced)
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateWithRetryGivesUp(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{
		errs:    []error{errors.New("down"), errors.New("down"), errors.New("down")},
		results: []*falai.Result{nil, nil, nil},
	}
	fx := newFixture(t, gen)

	_, err := fx.svc.GenerateWithRetry(context.Background(), "auth0|u1", "a red dragon", "", nil)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.Equal(t, 3, gen.calls)
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	fx := newFixture(t, gen)

	_, err := fx.svc.Generate(context.Background(), "auth0|u1", "   ", "", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
	assert.Zero(t, gen.calls)
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_red_dragon", slugify("A Red Dragon", 20))
	assert.Equal(t, "a_very_long_prompt_t", slugify("a very long prompt that keeps going", 20))
	assert.Equal(t, "____", slugify("!@#$", 20))
}
