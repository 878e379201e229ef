package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/metrics"
	"github.com/snapstudio/snapstudio/internal/models"
	"github.com/snapstudio/snapstudio/internal/providers"
	"github.com/snapstudio/snapstudio/internal/storage"
)

const serviceName = "classify"

// Service assigns a category to every thumbnail in a batch with one upstream
// call per batch.
type Service struct {
	provider providers.Provider
	model    string
	prompt   string
	timeout  time.Duration
	cache    storage.Cache
	cacheTTL time.Duration
	metrics  *metrics.Collector
}

type Option func(*Service)

// WithCache enables the result cache. A nil cache disables it.
func WithCache(cache storage.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTimeout bounds the upstream call. Zero leaves it to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

func NewService(provider providers.Provider, model string, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		model:    model,
		prompt:   BuildSystemPrompt(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify returns one category per thumbnail, in input order
func (s *Service) Classify(ctx context.Context, thumbnails []string) ([]models.Category, error) {
	if len(thumbnails) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "thumbnails must be a non-empty array")
	}
	for i, ref := range thumbnails {
		if err := images.ValidateRef(ref); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, fmt.Sprintf("thumbnails[%d] is not a valid image", i), err)
		}
	}

	key := s.cacheKey(thumbnails)
	if cached, ok := s.lookup(ctx, key, len(thumbnails)); ok {
		return cached, nil
	}

	slog.Info("Classifying images", "count", len(thumbnails), "provider", s.provider.Name(), "model", s.model)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.provider.Complete(callCtx, providers.Request{
		Model:       s.model,
		System:      s.prompt,
		Prompt:      buildUserPrompt(len(thumbnails)),
		Images:      thumbnails,
		Temperature: 0.1,
	})
	if err != nil {
		// 402 is only surfaced by the image tools
		if apperr.Is(err, apperr.KindCreditsExhausted) {
			err = apperr.Wrap(apperr.KindUpstream, "AI gateway error", err)
		}
		s.metrics.RecordUpstream(serviceName, s.provider.Name(), apperr.KindOf(err).String(), time.Since(start))
		slog.Error("Classification request failed", "error", err, "kind", apperr.KindOf(err).String())
		return nil, err
	}

	content := strings.TrimSpace(reply.Text)
	if content == "" {
		s.metrics.RecordUpstream(serviceName, s.provider.Name(), apperr.KindUpstream.String(), time.Since(start))
		return nil, apperr.New(apperr.KindUpstream, "No content in AI response")
	}
	s.metrics.RecordUpstream(serviceName, s.provider.Name(), "ok", time.Since(start))

	raw, ok := ExtractArray(content)
	if !ok {
		slog.Warn("Could not parse classification response, using default category", "response", truncate(content, 200))
		s.metrics.RecordRepair("unparsed", len(thumbnails))
	}

	categories, repairs := normalize(raw, len(thumbnails))
	if repairs != (Repairs{}) {
		slog.Debug("Normalized classification response",
			"unknown", repairs.Unknown,
			"padded", repairs.Padded,
			"trimmed", repairs.Trimmed)
	}
	s.metrics.RecordRepair("unknown", repairs.Unknown)
	if ok {
		s.metrics.RecordRepair("padded", repairs.Padded)
	}
	s.metrics.RecordRepair("trimmed", repairs.Trimmed)
	for _, c := range categories {
		s.metrics.RecordCategory(string(c))
	}

	// Unparsed replies are not cached so a retry can do better
	if ok {
		s.store(ctx, key, categories)
	}

	slog.Info("Classified images", "count", len(categories))
	return categories, nil
}

func (s *Service) cacheKey(thumbnails []string) string {
	h := sha256.New()
	h.Write([]byte(s.model))
	for _, t := range thumbnails {
		h.Write([]byte{0})
		h.Write([]byte(t))
	}
	return "classify:" + hex.EncodeToString(h.Sum(nil))
}

func (s *Service) lookup(ctx context.Context, key string, n int) ([]models.Category, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Classification cache lookup failed", "error", err)
		return nil, false
	}
	s.metrics.RecordCacheLookup(found)
	if !found {
		return nil, false
	}

	var cached []models.Category
	if err := json.Unmarshal(data, &cached); err != nil || len(cached) != n {
		slog.Warn("Discarding malformed cache entry", "key", key)
		return nil, false
	}
	for _, c := range cached {
		if !c.Valid() {
			return nil, false
		}
	}

	slog.Debug("Classification cache hit", "count", n)
	return cached, true
}

func (s *Service) store(ctx context.Context, key string, categories []models.Category) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		slog.Warn("Failed to store classification result", "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
