package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"tillpoint/backend/internal/cache"
	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/metrics"
	"tillpoint/backend/internal/pricing"
	"tillpoint/backend/internal/rulebook"
	"tillpoint/backend/internal/store"
	"tillpoint/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo           store.Repository
	catalog        cache.CatalogCache
	catalogTTL     time.Duration
	defaultStoreID string
}

func New(repo store.Repository, catalog cache.CatalogCache, catalogTTL time.Duration, defaultStoreID string) *Service {
	if defaultStoreID == "" {
		defaultStoreID = "main-store"
	}
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if catalogTTL < time.Second {
		catalogTTL = 30 * time.Second
	}

	return &Service{
		repo:           repo,
		catalog:        catalog,
		catalogTTL:     catalogTTL,
		defaultStoreID: defaultStoreID,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.Code == "" || req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidTransaction
	}
	if req.PriceCents < 1 {
		return domain.Product{}, store.ErrInvalidTransaction
	}

	product := domain.Product{
		Code:       req.Code,
		Name:       req.Name,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Active:     true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, s.defaultStoreID, "product_create", "product", created.Code, fmt.Sprintf("name=%s,price=%d", created.Name, created.PriceCents))

	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, code string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Product{}, store.ErrInvalidTransaction
	}

	existing, err := s.repo.GetProductByCode(ctx, code)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.Category = category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	if existing.PriceCents != saved.PriceCents {
		if err := s.repo.CreatePriceHistory(ctx, domain.ProductPriceHistory{
			ID:            xid.New("ph"),
			Code:          saved.Code,
			OldPriceCents: existing.PriceCents,
			NewPriceCents: saved.PriceCents,
			ChangedBy:     actor.Username,
			ChangedAt:     time.Now().UTC(),
		}); err != nil {
			log.Printf("[service] WARN: failed to record price history code=%s: %v", saved.Code, err)
		}
	}

	s.logAudit(ctx, s.defaultStoreID, "product_update", "product", saved.Code, fmt.Sprintf("active=%t,price=%d", saved.Active, saved.PriceCents))

	return *saved, nil
}

func (s *Service) ListProductPriceHistory(ctx context.Context, code string, limit int) ([]domain.ProductPriceHistory, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, store.ErrInvalidTransaction
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListPriceHistory(ctx, code, limit)
}

func (s *Service) CreateRule(ctx context.Context, req domain.RuleCreateRequest) (domain.RuleConfig, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.RuleConfig{}, fmt.Errorf("admin role required")
	}

	cfg := domain.RuleConfig{
		ID:            xid.New("rule"),
		Name:          strings.TrimSpace(req.Name),
		ProductCode:   strings.ToUpper(strings.TrimSpace(req.ProductCode)),
		DiscountCents: req.DiscountCents,
		ShareParts:    req.ShareParts,
		ShareOf:       req.ShareOf,
		Bulk:          req.Bulk,
		TriggerEvery:  req.TriggerEvery,
		MinCount:      req.MinCount,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := rulebook.Validate(cfg); err != nil {
		return domain.RuleConfig{}, err
	}

	saved, err := s.repo.CreateRuleConfig(ctx, cfg)
	if err != nil {
		return domain.RuleConfig{}, err
	}

	s.logAudit(ctx, s.defaultStoreID, "rule_create", "rule", saved.ID, fmt.Sprintf("name=%s,product=%s", saved.Name, saved.ProductCode))

	return *saved, nil
}

func (s *Service) ListRules(ctx context.Context) ([]domain.RuleConfig, error) {
	return s.repo.ListRuleConfigs(ctx)
}

func (s *Service) SetRuleActive(ctx context.Context, ruleID string, active bool) (domain.RuleConfig, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.RuleConfig{}, fmt.Errorf("admin role required")
	}
	if strings.TrimSpace(ruleID) == "" {
		return domain.RuleConfig{}, store.ErrInvalidTransaction
	}

	saved, err := s.repo.SetRuleConfigActive(ctx, ruleID, active)
	if err != nil {
		return domain.RuleConfig{}, err
	}

	s.logAudit(ctx, s.defaultStoreID, "rule_toggle", "rule", saved.ID, fmt.Sprintf("active=%t", saved.Active))

	return *saved, nil
}

// Checkout prices the scanned basket with the active rule set and persists
// the resulting transaction. Scan order is preserved end to end: conditions
// such as "every second item" depend on it.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = xid.New("idem")
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, store.ErrInvalidTransaction
	}

	scans := normalizeScans(req.Scans)
	if len(scans) == 0 {
		return domain.CheckoutResponse{}, store.ErrInvalidTransaction
	}

	if existing, err := s.repo.FindTransactionByIdempotency(ctx, req.IdempotencyKey); err == nil {
		metrics.DuplicateCheckouts.Inc()
		return toCheckoutResponse(existing, true), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.CheckoutResponse{}, err
	}

	catalog, err := s.lookupProducts(ctx, scans)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	basket := make([]domain.Product, 0, len(scans))
	for _, code := range scans {
		product, exists := catalog[code]
		if !exists || !product.Active {
			return domain.CheckoutResponse{}, store.ErrInvalidTransaction
		}
		basket = append(basket, product)
	}

	configs, err := s.repo.ListRuleConfigs(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	active := make([]domain.RuleConfig, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Active {
			active = append(active, cfg)
		}
	}
	rules, err := rulebook.Compile(active)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	cart := pricing.Empty(rules).Add(basket...)

	subtotal := cart.Price()
	total := cart.Total()
	discount := total - subtotal

	if req.PaymentMethod == "cash" {
		if req.CashReceivedCents < total {
			return domain.CheckoutResponse{}, store.ErrInvalidTransaction
		}
	} else {
		if strings.TrimSpace(req.PaymentReference) == "" {
			return domain.CheckoutResponse{}, store.ErrInvalidTransaction
		}
		req.CashReceivedCents = total
	}
	changeCents := req.CashReceivedCents - total

	lines := make([]domain.TransactionLine, 0, cart.ItemCount())
	for _, line := range cart.Lines() {
		lines = append(lines, domain.TransactionLine{
			Code:        line.Code,
			Name:        line.Name,
			AmountCents: line.AmountCents,
			Discount:    line.Discount,
		})
	}

	tx := domain.Transaction{
		ID:                xid.New("tx"),
		StoreID:           req.StoreID,
		TerminalID:        req.TerminalID,
		IdempotencyKey:    req.IdempotencyKey,
		PaymentMethod:     req.PaymentMethod,
		PaymentReference:  req.PaymentReference,
		SubtotalCents:     subtotal,
		DiscountCents:     discount,
		TotalCents:        total,
		CashReceivedCents: req.CashReceivedCents,
		ChangeCents:       changeCents,
		Status:            domain.TxStatusPaid,
		CreatedAt:         time.Now().UTC(),
		Lines:             lines,
	}

	created, err := s.repo.CreateCheckout(ctx, tx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	metrics.Checkouts.Inc()
	if created.DiscountCents < 0 {
		metrics.DiscountCentsGranted.Add(float64(-created.DiscountCents))
	}

	s.logAudit(
		ctx,
		req.StoreID,
		"checkout",
		"transaction",
		created.ID,
		fmt.Sprintf("total=%d,payment=%s,discount=%d,scans=%d", created.TotalCents, created.PaymentMethod, created.DiscountCents, len(scans)),
	)

	return toCheckoutResponse(created, false), nil
}

func (s *Service) LookupCheckoutByIdempotency(ctx context.Context, idempotencyKey string) (domain.CheckoutLookupResponse, error) {
	if idempotencyKey == "" {
		return domain.CheckoutLookupResponse{}, store.ErrInvalidTransaction
	}

	tx, err := s.repo.FindTransactionByIdempotency(ctx, idempotencyKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CheckoutLookupResponse{Found: false}, nil
		}
		return domain.CheckoutLookupResponse{}, err
	}
	checkout := toCheckoutResponse(tx, false)
	return domain.CheckoutLookupResponse{Found: true, Checkout: &checkout}, nil
}

func (s *Service) VoidTransaction(ctx context.Context, req domain.VoidTransactionRequest) (domain.VoidTransactionResponse, error) {
	if req.TransactionID == "" {
		return domain.VoidTransactionResponse{}, store.ErrInvalidTransaction
	}
	if req.Reason == "" {
		req.Reason = "unspecified"
	}

	voidedAt := time.Now().UTC()
	tx, err := s.repo.VoidTransaction(ctx, req.TransactionID, req.Reason, voidedAt)
	if err != nil {
		return domain.VoidTransactionResponse{}, err
	}

	metrics.VoidedTransactions.Inc()
	s.logAudit(ctx, tx.StoreID, "void_transaction", "transaction", tx.ID, req.Reason)

	return domain.VoidTransactionResponse{
		TransactionID: tx.ID,
		Status:        tx.Status,
		VoidedAt:      voidedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) BuildReceipt(ctx context.Context, req domain.ReceiptRequest) (domain.ReceiptResponse, error) {
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.TransactionID == "" {
		return domain.ReceiptResponse{}, store.ErrInvalidTransaction
	}
	tx, err := s.repo.FindTransactionByID(ctx, req.TransactionID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	lines := []string{
		"TillPoint",
		"========================",
		"TX: " + tx.ID,
		"Store: " + tx.StoreID,
		"Terminal: " + tx.TerminalID,
		"Date: " + tx.CreatedAt.Format("2006-01-02 15:04:05"),
		"------------------------",
	}
	for _, line := range tx.Lines {
		label := line.Name
		if line.Code != "" {
			label = line.Code + " " + line.Name
		}
		lines = append(lines, fmt.Sprintf("%-18s %8s", label, formatCents(line.AmountCents)))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Subtotal : %s", formatCents(tx.SubtotalCents)),
		fmt.Sprintf("Discount : %s", formatCents(tx.DiscountCents)),
		fmt.Sprintf("Total    : %s", formatCents(tx.TotalCents)),
		fmt.Sprintf("Paid     : %s", formatCents(tx.CashReceivedCents)),
		fmt.Sprintf("Change   : %s", formatCents(tx.ChangeCents)),
		"========================",
		"Thank you",
		"",
	)

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.ReceiptResponse{
		TransactionID: tx.ID,
		EscposBase64:  base64.StdEncoding.EncodeToString(escpos),
		PreviewText:   strings.Join(lines, "\n"),
		FileName:      fmt.Sprintf("receipt-%s.bin", tx.ID),
	}, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, storeID string, date string, limit int) ([]domain.AuditLog, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrInvalidTransaction
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, storeID, from, to, limit)
}

// lookupProducts serves the basket's catalog slice from cache when possible.
// The key is the sorted set of distinct codes, so scan order and repetition
// do not fragment the cache.
func (s *Service) lookupProducts(ctx context.Context, scans []string) (map[string]domain.Product, error) {
	codes := uniqueCodes(scans)
	key := "catalog:" + strings.Join(codes, ",")

	if cached, hit, err := s.catalog.Get(ctx, key); err == nil && hit {
		metrics.CatalogCacheHits.Inc()
		return cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: catalog cache get failed: %v", err)
	}

	products, err := s.repo.GetProductsByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.Set(ctx, key, products, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: catalog cache set failed: %v", err)
	}
	return products, nil
}

func (s *Service) logAudit(ctx context.Context, storeID string, action string, entityType string, entityID string, detail string) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       storeID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func toCheckoutResponse(tx *domain.Transaction, duplicate bool) domain.CheckoutResponse {
	itemCount := 0
	lines := make([]domain.ReceiptLine, 0, len(tx.Lines))
	for _, line := range tx.Lines {
		if !line.Discount {
			itemCount++
		}
		lines = append(lines, domain.ReceiptLine{
			Code:        line.Code,
			Name:        line.Name,
			AmountCents: line.AmountCents,
			Discount:    line.Discount,
		})
	}

	return domain.CheckoutResponse{
		TransactionID: tx.ID,
		Status:        tx.Status,
		PaymentMethod: tx.PaymentMethod,
		SubtotalCents: tx.SubtotalCents,
		DiscountCents: tx.DiscountCents,
		TotalCents:    tx.TotalCents,
		CashReceived:  tx.CashReceivedCents,
		ChangeCents:   tx.ChangeCents,
		ItemCount:     itemCount,
		Lines:         lines,
		Duplicate:     duplicate,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
}

func normalizeScans(scans []string) []string {
	result := make([]string, 0, len(scans))
	for _, code := range scans {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		result = append(result, code)
	}
	return result
}

func uniqueCodes(scans []string) []string {
	set := make(map[string]struct{}, len(scans))
	for _, code := range scans {
		set[code] = struct{}{}
	}
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case "cash", "card", "qris", "ewallet":
		return true
	default:
		return false
	}
}
