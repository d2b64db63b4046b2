package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/newsloom/source-manager/internal/events"
	"github.com/newsloom/source-manager/internal/handlers"
	"github.com/newsloom/source-manager/internal/importer"
	"github.com/newsloom/source-manager/internal/models"
	"github.com/newsloom/source-manager/internal/repository"
	"github.com/newsloom/source-manager/internal/synthesis"
	"github.com/newsloom/source-manager/internal/testhelpers"
)

type MockSourceStore struct {
	mock.Mock
}

func (m *MockSourceStore) Create(ctx context.Context, source *models.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockSourceStore) GetByID(ctx context.Context, id string) (*models.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Source), args.Error(1)
}

func (m *MockSourceStore) GetByIdentifier(ctx context.Context, identifier string) (*models.Source, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Source), args.Error(1)
}

func (m *MockSourceStore) List(ctx context.Context) ([]models.Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Source), args.Error(1)
}

func (m *MockSourceStore) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// stubSynthesizer returns a fixed config, or a per-identifier error.
type stubSynthesizer struct {
	cfg     *models.SourceConfig
	failFor map[string]error
}

func (s *stubSynthesizer) Synthesize(_ context.Context, identifier string) (*models.SourceConfig, error) {
	if err, ok := s.failFor[identifier]; ok {
		return nil, err
	}
	return s.cfg, nil
}

func (s *stubSynthesizer) SynthesizeBatch(ctx context.Context, identifiers []string, _ int) []synthesis.BatchResult {
	results := make([]synthesis.BatchResult, len(identifiers))
	for i, id := range identifiers {
		cfg, err := s.Synthesize(ctx, id)
		results[i] = synthesis.BatchResult{Identifier: id, Config: cfg, Err: err}
	}
	return results
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SourceEvent
}

func (p *recordingPublisher) PublishAsync(event events.SourceEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) published() []events.SourceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.SourceEvent(nil), p.events...)
}

func telegramConfig() *models.SourceConfig {
	return synthesis.BuildTelegramConfig("https://t.me/channel_news_test")
}

func setupRouter(handler *handlers.SourceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/sources", handler.Register)
	router.POST("/sources/batch", handler.RegisterBatch)
	router.POST("/sources/import", handler.Import)
	router.GET("/sources", handler.List)
	router.GET("/sources/:id", handler.GetByID)
	router.DELETE("/sources/:id", handler.Delete)
	return router
}

func newHandler(synth handlers.Synthesizer, store handlers.SourceStore, pub handlers.EventPublisher) *handlers.SourceHandler {
	return handlers.NewSourceHandler(synth, store, pub, 2, testhelpers.NewTestLogger())
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesSourceAndPublishes(t *testing.T) {
	store := new(MockSourceStore)
	store.On("GetByIdentifier", mock.Anything, "https://t.me/channel_news_test").
		Return(nil, repository.ErrNotFound)
	store.On("Create", mock.Anything, mock.MatchedBy(func(s *models.Source) bool {
		return s.Identifier == "https://t.me/channel_news_test" &&
			s.Platform == models.PlatformTelegram &&
			s.Enabled
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Source).ID = "generated-id"
	}).Return(nil)

	pub := &recordingPublisher{}
	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, store, pub))

	w := postJSON(t, router, "/sources", gin.H{"identifier": "https://t.me/channel_news_test"})

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Source
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "generated-id", created.ID)
	assert.Equal(t, models.PlatformTelegram, created.Platform)
	require.NotNil(t, created.Config.Telegram)
	assert.Equal(t, "channel_news_test", created.Config.Telegram.Username)

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventConfigSynthesized, published[0].EventType)
	assert.Equal(t, "generated-id", published[0].SourceID)

	store.AssertExpectations(t)
}

func TestRegisterRejectsMissingIdentifier(t *testing.T) {
	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, new(MockSourceStore), &recordingPublisher{}))

	w := postJSON(t, router, "/sources", gin.H{"name": "no identifier"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicateIdentifier(t *testing.T) {
	store := new(MockSourceStore)
	store.On("GetByIdentifier", mock.Anything, "https://t.me/channel_news_test").
		Return(&models.Source{ID: "existing-id"}, nil)

	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, store, &recordingPublisher{}))

	w := postJSON(t, router, "/sources", gin.H{"identifier": "https://t.me/channel_news_test"})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "existing-id")
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterDuplicateLostRace(t *testing.T) {
	// The identifier is free at lookup time but another registration wins the
	// insert; the unique index surfaces it as a duplicate, not a 500.
	store := new(MockSourceStore)
	store.On("GetByIdentifier", mock.Anything, "https://t.me/channel_news_test").
		Return(nil, repository.ErrNotFound)
	store.On("Create", mock.Anything, mock.Anything).
		Return(repository.ErrDuplicateIdentifier)

	pub := &recordingPublisher{}
	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, store, pub))

	w := postJSON(t, router, "/sources", gin.H{"identifier": "https://t.me/channel_news_test"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, pub.published())
}

func TestRegisterSynthesisFailureReportsStage(t *testing.T) {
	store := new(MockSourceStore)
	store.On("GetByIdentifier", mock.Anything, "broken.example.com").
		Return(nil, repository.ErrNotFound)

	synth := &stubSynthesizer{
		failFor: map[string]error{
			"broken.example.com": &synthesis.SynthesisError{
				Identifier: "broken.example.com",
				Stage:      synthesis.StageGeneration,
				Err:        errors.New("model returned invalid JSON"),
			},
		},
	}
	router := setupRouter(newHandler(synth, store, &recordingPublisher{}))

	w := postJSON(t, router, "/sources", gin.H{"identifier": "broken.example.com"})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "broken.example.com", resp["identifier"])
	assert.Equal(t, "generation", resp["stage"])
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterBatchMixedResults(t *testing.T) {
	store := new(MockSourceStore)
	store.On("GetByIdentifier", mock.Anything, mock.Anything).
		Return(nil, repository.ErrNotFound)
	store.On("Create", mock.Anything, mock.Anything).Return(nil)

	synth := &stubSynthesizer{
		cfg: telegramConfig(),
		failFor: map[string]error{
			"bad.example.com": &synthesis.SynthesisError{
				Identifier: "bad.example.com",
				Stage:      synthesis.StageGeneration,
				Err:        errors.New("empty response"),
			},
		},
	}
	router := setupRouter(newHandler(synth, store, &recordingPublisher{}))

	w := postJSON(t, router, "/sources/batch", gin.H{
		"identifiers": []string{"@channel_one", "bad.example.com", "@channel_two"},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []struct {
			Identifier string `json:"identifier"`
			Status     string `json:"status"`
			Stage      string `json:"stage"`
		} `json:"results"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "created", resp.Results[0].Status)
	assert.Equal(t, "failed", resp.Results[1].Status)
	assert.Equal(t, "generation", resp.Results[1].Stage)
	assert.Equal(t, "created", resp.Results[2].Status)
}

func TestRegisterBatchRejectsEmptyList(t *testing.T) {
	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, new(MockSourceStore), &recordingPublisher{}))

	w := postJSON(t, router, "/sources/batch", gin.H{"identifiers": []string{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportRegistersWorkbookRows(t *testing.T) {
	store := new(MockSourceStore)
	store.On("GetByIdentifier", mock.Anything, mock.Anything).
		Return(nil, repository.ErrNotFound)
	store.On("Create", mock.Anything, mock.MatchedBy(func(s *models.Source) bool {
		return s.Identifier == "https://t.me/channel_news_test" && s.Name == "Example Channel"
	})).Return(nil)

	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, store, &recordingPublisher{}))

	// The template workbook ships with one example row.
	var workbook bytes.Buffer
	require.NoError(t, importer.WriteTemplate(&workbook))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "sources.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/sources/import", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 0, resp.Failed)
	store.AssertExpectations(t)
}

func TestImportRejectsMissingFile(t *testing.T) {
	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, new(MockSourceStore), &recordingPublisher{}))

	req := httptest.NewRequest(http.MethodPost, "/sources/import", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetByIDNotFound(t *testing.T) {
	store := new(MockSourceStore)
	store.On("GetByID", mock.Anything, "missing-id").
		Return(nil, repository.ErrNotFound)

	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, store, &recordingPublisher{}))

	req := httptest.NewRequest(http.MethodGet, "/sources/missing-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReturnsSourcesWithCount(t *testing.T) {
	store := new(MockSourceStore)
	store.On("List", mock.Anything).Return([]models.Source{
		{ID: "id-1", Identifier: "@channel_one", Platform: models.PlatformTelegram},
		{ID: "id-2", Identifier: "news.example.com", Platform: models.PlatformWebsite},
	}, nil)

	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, store, &recordingPublisher{}))

	req := httptest.NewRequest(http.MethodGet, "/sources", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int             `json:"count"`
		Sources []models.Source `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Sources, 2)
}

func TestDeleteSoftDeletesAndPublishes(t *testing.T) {
	store := new(MockSourceStore)
	store.On("GetByID", mock.Anything, "some-id").Return(&models.Source{
		ID:         "some-id",
		Identifier: "@channel_one",
		Platform:   models.PlatformTelegram,
	}, nil)
	store.On("SoftDelete", mock.Anything, "some-id").Return(nil)

	pub := &recordingPublisher{}
	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, store, pub))

	req := httptest.NewRequest(http.MethodDelete, "/sources/some-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventSourceDeleted, published[0].EventType)
	assert.Equal(t, "some-id", published[0].SourceID)

	store.AssertExpectations(t)
}

func TestDeleteNotFound(t *testing.T) {
	store := new(MockSourceStore)
	store.On("GetByID", mock.Anything, "missing-id").
		Return(nil, repository.ErrNotFound)

	router := setupRouter(newHandler(&stubSynthesizer{cfg: telegramConfig()}, store, &recordingPublisher{}))

	req := httptest.NewRequest(http.MethodDelete, "/sources/missing-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	store.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}
