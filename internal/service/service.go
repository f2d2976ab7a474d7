package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"affiliate-sales-api/internal/cache"
	"affiliate-sales-api/internal/database"
	"affiliate-sales-api/internal/events"
	"affiliate-sales-api/internal/features"
	"affiliate-sales-api/internal/models"
	"affiliate-sales-api/internal/parser"
	"affiliate-sales-api/internal/validation"
)

const (
	defaultMaxFileLines = 10000
	summaryCacheKey     = "seller_summaries"
	summaryCacheTTL     = 30 * time.Second
)

// Service provides business logic for the affiliate sales API.
type Service struct {
	db           *database.DB
	cache        cache.Cache
	events       *events.Manager
	features     *features.Manager
	maxFileLines int
}

// Options holds optional collaborators for the service.
type Options struct {
	Cache        cache.Cache
	Events       *events.Manager
	Features     *features.Manager
	MaxFileLines int
}

// NewService creates a new service instance with no cache or event hooks.
func NewService(db *database.DB) *Service {
	return NewServiceWithOptions(db, Options{})
}

// NewServiceWithOptions creates a new service instance with custom options.
func NewServiceWithOptions(db *database.DB, opts Options) *Service {
	maxLines := opts.MaxFileLines
	if maxLines <= 0 {
		maxLines = defaultMaxFileLines
	}
	return &Service{
		db:           db,
		cache:        opts.Cache,
		events:       opts.Events,
		features:     opts.Features,
		maxFileLines: maxLines,
	}
}

// ProcessTransactionFile ingests one fixed-width upload. Every line is
// decoded before anything touches the database, so a malformed line or an
// unknown type code aborts with no durable writes. The batch of resolved
// records plus any new catalog entities commits as a single unit.
func (s *Service) ProcessTransactionFile(ctx context.Context, content, filename string) error {
	if content == "" {
		return &parser.EmptyInputError{}
	}

	if err := validation.ValidateUploadContent(content, s.maxFileLines); err != nil {
		return err
	}

	// Preparatory phase: decode and type-map every line up front.
	type decodedLine struct {
		parser.Line
		lineNo int
	}
	var decoded []decodedLine
	for i, raw := range parser.SplitLines(content) {
		if raw == "" {
			continue
		}
		line, err := parser.DecodeLine(raw, i+1)
		if err != nil {
			return err
		}
		decoded = append(decoded, decodedLine{Line: line, lineNo: i + 1})
	}

	batch, err := s.db.BeginBatch(ctx)
	if err != nil {
		return err
	}
	defer batch.Rollback()

	// In-batch memo so a name repeated within one file resolves once and is
	// created at most once, at its first occurrence.
	productIDs := make(map[string]string)
	sellerIDs := make(map[string]string)

	records := make([]models.TransactionRecord, 0, len(decoded))
	for _, line := range decoded {
		productID, err := findOrCreate(ctx, batch.Products(), productIDs, line.Product)
		if err != nil {
			return fmt.Errorf("line %d: %w", line.lineNo, err)
		}
		sellerID, err := findOrCreate(ctx, batch.Sellers(), sellerIDs, line.Seller)
		if err != nil {
			return fmt.Errorf("line %d: %w", line.lineNo, err)
		}

		records = append(records, models.TransactionRecord{
			ID:         uuid.New().String(),
			Type:       line.Type,
			Date:       line.Date,
			ValueCents: line.ValueCents,
			ProductID:  productID,
			SellerID:   sellerID,
		})
	}

	if err := batch.InsertTransactions(ctx, records); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	s.invalidateSummaryCache(ctx)
	if s.events != nil {
		s.events.PublishFileIngested(ctx, filename, len(records))
	}

	return nil
}

// GetSellerSummaries groups all persisted transactions by seller name, in
// first-seen order, with signed earnings totals.
func (s *Service) GetSellerSummaries(ctx context.Context) ([]models.SellerSummary, error) {
	if s.cacheEnabled() {
		var cached []models.SellerSummary
		if err := cache.GetJSON(ctx, s.cache, summaryCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	transactions, err := s.db.ListTransactionsWithRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	summaries := groupBySeller(transactions)

	if s.cacheEnabled() {
		_ = cache.SetJSON(ctx, s.cache, summaryCacheKey, summaries, summaryCacheTTL)
	}
	if s.events != nil {
		s.events.PublishSummariesComputed(ctx, len(summaries))
	}

	return summaries, nil
}

// groupBySeller builds the read model: one group per seller name, ordered by
// first appearance; within a group, transactions keep input order and
// earnings accumulate with paid commissions negated.
func groupBySeller(transactions []models.Transaction) []models.SellerSummary {
	summaries := []models.SellerSummary{}
	index := make(map[string]int)

	for _, txn := range transactions {
		i, ok := index[txn.Seller.Name]
		if !ok {
			i = len(summaries)
			index[txn.Seller.Name] = i
			summaries = append(summaries, models.SellerSummary{Name: txn.Seller.Name})
		}

		summaries[i].Transactions = append(summaries[i].Transactions, txn)
		summaries[i].Earnings += txn.Type.Contribution(txn.ValueCents)
	}

	return summaries
}

// findOrCreate resolves a catalog name to its id, creating the entity on
// first sight. ids memoizes resolutions within the current batch.
func findOrCreate(ctx context.Context, store database.EntityStore, ids map[string]string, name string) (string, error) {
	if id, ok := ids[name]; ok {
		return id, nil
	}

	id, err := store.FindByName(ctx, name)
	if errors.Is(err, database.ErrNotFound) {
		id, err = store.Create(ctx, name)
	}
	if err != nil {
		return "", err
	}

	ids[name] = id
	return id, nil
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && (s.features == nil || s.features.IsEnabled(features.FeatureCacheEnabled))
}

func (s *Service) invalidateSummaryCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, summaryCacheKey)
	}
}
