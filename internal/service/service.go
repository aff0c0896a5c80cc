package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"card-rewards-api/internal/cache"
	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/database"
	"card-rewards-api/internal/events"
	"card-rewards-api/internal/features"
	"card-rewards-api/internal/models"
	"card-rewards-api/internal/ranking"
	"card-rewards-api/internal/tracing"
	"card-rewards-api/internal/validation"
)

// Options holds the optional collaborators of a Service.
type Options struct {
	Cache    cache.Cache // nil disables catalog caching
	CacheTTL time.Duration
	Features *features.Manager
	Events   *events.Manager
	Logger   *zap.Logger
	Now      func() time.Time
}

// Service provides business logic for the card rewards API.
type Service struct {
	db       *database.DB
	catalog  catalog.CardRepository
	cache    *cachedCatalog
	features *features.Manager
	events   *events.Manager
	engine   ranking.Engine
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewService creates a new service instance.
func NewService(db *database.DB, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Events == nil {
		opts.Events = events.NewManager(false, opts.Logger)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	cached := &cachedCatalog{
		db:       db,
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		features: opts.Features,
		logger:   opts.Logger,
	}

	return &Service{
		db:       db,
		catalog:  cached,
		cache:    cached,
		features: opts.Features,
		events:   opts.Events,
		engine:   ranking.Engine{Now: opts.Now},
		logger:   opts.Logger,
		tracer:   tracing.Tracer(),
	}
}

// CreateCard validates and stores a card, replacing any card with the same id.
// Rules submitted without an id are assigned one.
func (s *Service) CreateCard(ctx context.Context, card catalog.CardDocument) (catalog.CardDocument, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateCard")
	defer span.End()

	card = sanitizeCard(card)
	if err := validation.ValidateCard(card); err != nil {
		return catalog.CardDocument{}, err
	}

	for i := range card.Rewards {
		if card.Rewards[i].ID == "" {
			card.Rewards[i].ID = uuid.NewString()
		}
	}

	if err := s.db.UpsertCard(ctx, card); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return catalog.CardDocument{}, err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("card upserted",
		zap.String("card_id", card.ID),
		zap.Int("rules", len(card.Rewards)),
		zap.Bool("active", card.IsActive),
	)
	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishCardUpserted(ctx, card)
	}

	return card, nil
}

// GetCard returns one card.
func (s *Service) GetCard(ctx context.Context, id string) (catalog.CardDocument, error) {
	if err := validation.ValidateCardID(id, "card_id"); err != nil {
		return catalog.CardDocument{}, err
	}
	return s.db.GetCard(ctx, id)
}

// ListCards returns the stored cards matching filter.
func (s *Service) ListCards(ctx context.Context, filter database.CardFilter) ([]catalog.CardDocument, error) {
	return s.db.ListCards(ctx, filter)
}

// DeleteCard removes a card from the catalog.
func (s *Service) DeleteCard(ctx context.Context, id string) error {
	if err := validation.ValidateCardID(id, "card_id"); err != nil {
		return err
	}

	if err := s.db.DeleteCard(ctx, id); err != nil {
		return err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("card deleted", zap.String("card_id", id))
	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishCardDeleted(ctx, id)
	}

	return nil
}

// Recommend ranks the active catalog for a transaction.
func (s *Service) Recommend(ctx context.Context, req models.RecommendRequest) (models.RecommendResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.Recommend")
	defer span.End()

	txn, err := validation.ParseTransaction(req.Transaction)
	if err != nil {
		return models.RecommendResponse{}, err
	}

	prefs, err := validation.ParsePreferences(req.Preferences)
	if err != nil {
		return models.RecommendResponse{}, err
	}

	cards, err := s.catalog.LoadCards(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog load failed")
		return models.RecommendResponse{}, fmt.Errorf("failed to load card catalog: %w", err)
	}

	result := s.engine.Rank(cards, txn, prefs)

	response := models.RecommendResponse{
		RequestID:         uuid.NewString(),
		HasRecommendation: result.HasRecommendation,
		Recommendations:   make([]models.RecommendationView, 0, len(result.Recommendations)),
	}
	for _, rec := range result.Recommendations {
		response.Recommendations = append(response.Recommendations, models.NewRecommendationView(rec))
	}

	var topCardID string
	if result.HasRecommendation {
		topCardID = result.Recommendations[0].Card.ID
	}

	span.SetAttributes(
		attribute.String("request.id", response.RequestID),
		attribute.Int("catalog.size", len(cards)),
		attribute.Int("cards.ranked", len(result.Recommendations)),
		attribute.String("card.top", topCardID),
	)
	s.logger.Info("recommendation generated",
		zap.String("request_id", response.RequestID),
		zap.String("category", txn.Category),
		zap.String("merchant_id", txn.MerchantID),
		zap.String("currency", txn.Currency),
		zap.Int("catalog_size", len(cards)),
		zap.Int("ranked", len(result.Recommendations)),
		zap.String("top_card", topCardID),
	)

	if s.features.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishRecommendationGenerated(ctx, events.RecommendationGeneratedData{
			RequestID:   response.RequestID,
			TopCardID:   topCardID,
			CardsRanked: len(result.Recommendations),
			CatalogSize: len(cards),
		})
	}

	return response, nil
}

func sanitizeCard(card catalog.CardDocument) catalog.CardDocument {
	card.ID = strings.ToLower(validation.SanitizeString(card.ID))
	card.Name = validation.SanitizeString(card.Name)
	card.Issuer = validation.SanitizeString(card.Issuer)
	for i := range card.Rewards {
		rule := &card.Rewards[i]
		rule.ID = validation.SanitizeString(rule.ID)
		rule.Description = validation.SanitizeString(rule.Description)
		rule.Categories = sanitizeAll(rule.Categories)
		rule.SpecificMerchants = sanitizeAll(rule.SpecificMerchants)
		rule.MerchantTypes = sanitizeAll(rule.MerchantTypes)
		rule.ExcludedCategories = sanitizeAll(rule.ExcludedCategories)
		rule.ExcludedMerchants = sanitizeAll(rule.ExcludedMerchants)
	}
	return card
}

func sanitizeAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = validation.SanitizeString(v)
	}
	return out
}
