package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"tillpoint/backend/internal/cache"
	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	return New(repo, cache.NoopCatalogCache{}, 5*time.Second, "main-store")
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username: "admin",
		Role:     "admin",
	})
}

func TestCheckoutClassicBaskets(t *testing.T) {
	cases := []struct {
		name  string
		scans []string
		total int64
	}{
		{"tea strawberry tea tea coffee", []string{"GR1", "SR1", "GR1", "GR1", "CF1"}, 2245},
		{"two teas", []string{"GR1", "GR1"}, 311},
		{"three strawberries and a tea", []string{"SR1", "SR1", "GR1", "SR1"}, 1661},
		{"coffees in bulk", []string{"GR1", "CF1", "SR1", "CF1", "CF1"}, 3057},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService()
			resp, err := svc.Checkout(context.Background(), domain.CheckoutRequest{
				TerminalID:        "terminal-a1",
				IdempotencyKey:    "idem-" + strings.ReplaceAll(tc.name, " ", "-"),
				PaymentMethod:     "cash",
				CashReceivedCents: 10000,
				Scans:             tc.scans,
			})
			if err != nil {
				t.Fatalf("checkout failed: %v", err)
			}
			if resp.TotalCents != tc.total {
				t.Fatalf("expected total %d, got %d", tc.total, resp.TotalCents)
			}
			if resp.SubtotalCents+resp.DiscountCents != resp.TotalCents {
				t.Fatalf("subtotal %d + discount %d != total %d", resp.SubtotalCents, resp.DiscountCents, resp.TotalCents)
			}
			if resp.ItemCount != len(tc.scans) {
				t.Fatalf("expected %d items, got %d", len(tc.scans), resp.ItemCount)
			}
			if resp.ChangeCents != 10000-tc.total {
				t.Fatalf("expected change %d, got %d", 10000-tc.total, resp.ChangeCents)
			}
		})
	}
}

func TestCheckoutReplayReturnsOriginalTransaction(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-replay",
		PaymentMethod:     "cash",
		CashReceivedCents: 5000,
		Scans:             []string{"GR1", "GR1"},
	})
	if err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}
	if first.Duplicate {
		t.Fatalf("first checkout must not be marked duplicate")
	}

	replay, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-replay",
		PaymentMethod:     "cash",
		CashReceivedCents: 5000,
		Scans:             []string{"CF1"},
	})
	if err != nil {
		t.Fatalf("replay checkout failed: %v", err)
	}
	if !replay.Duplicate {
		t.Fatalf("expected replay to be marked duplicate")
	}
	if replay.TransactionID != first.TransactionID {
		t.Fatalf("expected replay to return transaction %s, got %s", first.TransactionID, replay.TransactionID)
	}
	if replay.TotalCents != first.TotalCents {
		t.Fatalf("replay must carry original totals, got %d want %d", replay.TotalCents, first.TotalCents)
	}
}

func TestCheckoutRejectsUnknownCodeAndShortCash(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-unknown",
		PaymentMethod:     "cash",
		CashReceivedCents: 10000,
		Scans:             []string{"GR1", "NOPE"},
	})
	if err == nil {
		t.Fatalf("expected checkout with unknown code to fail")
	}

	_, err = svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-short-cash",
		PaymentMethod:     "cash",
		CashReceivedCents: 100,
		Scans:             []string{"CF1"},
	})
	if err == nil {
		t.Fatalf("expected checkout with insufficient cash to fail")
	}
}

func TestCheckoutNonCashRequiresReference(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:     "terminal-a1",
		IdempotencyKey: "idem-card-noref",
		PaymentMethod:  "card",
		Scans:          []string{"GR1"},
	})
	if err == nil {
		t.Fatalf("expected card checkout without reference to fail")
	}

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:       "terminal-a1",
		IdempotencyKey:   "idem-card",
		PaymentMethod:    "card",
		PaymentReference: "CARD-REF-001",
		Scans:            []string{"GR1"},
	})
	if err != nil {
		t.Fatalf("card checkout failed: %v", err)
	}
	if resp.ChangeCents != 0 {
		t.Fatalf("expected zero change for card payment, got %d", resp.ChangeCents)
	}
}

func TestCheckoutLinesPreserveScanOrder(t *testing.T) {
	svc := newTestService()

	resp, err := svc.Checkout(context.Background(), domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-lines",
		PaymentMethod:     "cash",
		CashReceivedCents: 10000,
		Scans:             []string{"SR1", "GR1", "GR1"},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	wantCodes := []string{"SR1", "GR1", "GR1"}
	for i, code := range wantCodes {
		if resp.Lines[i].Code != code {
			t.Fatalf("line %d: expected code %s, got %s", i, code, resp.Lines[i].Code)
		}
	}
	last := resp.Lines[len(resp.Lines)-1]
	if !last.Discount || last.AmountCents != -311 {
		t.Fatalf("expected trailing discount line of -311, got %+v", last)
	}
}

func TestCheckoutLookupByIdempotency(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-lookup",
		PaymentMethod:     "cash",
		CashReceivedCents: 10000,
		Scans:             []string{"GR1"},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	lookup, err := svc.LookupCheckoutByIdempotency(ctx, "idem-lookup")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !lookup.Found || lookup.Checkout == nil {
		t.Fatalf("expected checkout to be found")
	}

	missing, err := svc.LookupCheckoutByIdempotency(ctx, "idem-missing")
	if err != nil {
		t.Fatalf("lookup of missing key failed: %v", err)
	}
	if missing.Found {
		t.Fatalf("expected missing key to report found=false")
	}
}

func TestVoidLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	checkoutResp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-void",
		PaymentMethod:     "cash",
		CashReceivedCents: 10000,
		Scans:             []string{"GR1"},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	voidResp, err := svc.VoidTransaction(ctx, domain.VoidTransactionRequest{
		TransactionID: checkoutResp.TransactionID,
		Reason:        "wrong scan",
	})
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if voidResp.Status != domain.TxStatusVoided {
		t.Fatalf("expected voided status, got %s", voidResp.Status)
	}

	_, err = svc.VoidTransaction(ctx, domain.VoidTransactionRequest{
		TransactionID: checkoutResp.TransactionID,
		Reason:        "duplicate void",
	})
	if err == nil {
		t.Fatalf("expected second void to fail")
	}
}

func TestCreateProductAdminSuccess(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Code:       "ml1",
		Name:       "Whole Milk",
		Category:   "dairy",
		PriceCents: 189,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if product.Code != "ML1" {
		t.Fatalf("expected uppercased code ML1, got %s", product.Code)
	}

	resp, err := svc.Checkout(context.Background(), domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-milk",
		PaymentMethod:     "cash",
		CashReceivedCents: 1000,
		Scans:             []string{"ML1"},
	})
	if err != nil {
		t.Fatalf("checkout of new product failed: %v", err)
	}
	if resp.TotalCents != 189 {
		t.Fatalf("expected total 189, got %d", resp.TotalCents)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})

	_, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Code:       "XX1",
		Name:       "Contraband",
		Category:   "misc",
		PriceCents: 100,
	})
	if err == nil {
		t.Fatalf("expected cashier product creation to fail")
	}
}

func TestUpdateProductRecordsPriceHistory(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	newPrice := int64(349)
	if _, err := svc.UpdateProduct(ctx, "GR1", domain.ProductUpdateRequest{PriceCents: &newPrice}); err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	history, err := svc.ListProductPriceHistory(ctx, "GR1", 10)
	if err != nil {
		t.Fatalf("list price history failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one price history entry, got %d", len(history))
	}
	if history[0].OldPriceCents != 311 || history[0].NewPriceCents != 349 {
		t.Fatalf("unexpected price history entry: %+v", history[0])
	}
	if history[0].ChangedBy != "admin" {
		t.Fatalf("expected changed_by admin, got %s", history[0].ChangedBy)
	}
}

func TestRuleToggleChangesCheckoutTotal(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	if _, err := svc.SetRuleActive(ctx, "rule-tea-bogo", false); err != nil {
		t.Fatalf("disable rule failed: %v", err)
	}

	resp, err := svc.Checkout(context.Background(), domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-no-bogo",
		PaymentMethod:     "cash",
		CashReceivedCents: 10000,
		Scans:             []string{"GR1", "GR1"},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.TotalCents != 622 {
		t.Fatalf("expected full price 622 with rule disabled, got %d", resp.TotalCents)
	}
}

func TestCreateRuleRejectsInvalidConfig(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	_, err := svc.CreateRule(ctx, domain.RuleCreateRequest{
		Name:        "broken share",
		ProductCode: "GR1",
		ShareParts:  -1,
	})
	if err == nil {
		t.Fatalf("expected rule with share parts but no denominator to fail")
	}
}

func TestBuildReceiptEncodesEscpos(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	checkoutResp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-receipt",
		PaymentMethod:     "cash",
		CashReceivedCents: 10000,
		Scans:             []string{"GR1", "GR1"},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	receipt, err := svc.BuildReceipt(ctx, domain.ReceiptRequest{TransactionID: checkoutResp.TransactionID})
	if err != nil {
		t.Fatalf("build receipt failed: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(receipt.EscposBase64)
	if err != nil {
		t.Fatalf("receipt payload is not valid base64: %v", err)
	}
	if len(raw) < 2 || raw[0] != 0x1b || raw[1] != 0x40 {
		t.Fatalf("expected ESC/POS init sequence at start of payload")
	}
	if !strings.Contains(receipt.PreviewText, "Total    : 3.11") {
		t.Fatalf("expected formatted total in preview, got:\n%s", receipt.PreviewText)
	}
	if !strings.Contains(receipt.PreviewText, "buy one get one free") {
		t.Fatalf("expected discount line on receipt, got:\n%s", receipt.PreviewText)
	}
}

func TestAuditTrailRecordsCheckout(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		TerminalID:        "terminal-a1",
		IdempotencyKey:    "idem-audit",
		PaymentMethod:     "cash",
		CashReceivedCents: 10000,
		Scans:             []string{"SR1"},
	}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, "main-store", "", 10)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	if len(logs) == 0 {
		t.Fatalf("expected at least one audit entry")
	}
	if logs[0].Action != "checkout" || logs[0].ActorUsername != "cashier" {
		t.Fatalf("unexpected newest audit entry: %+v", logs[0])
	}
}
