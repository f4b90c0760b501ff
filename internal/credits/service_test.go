package credits

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
)

// fakeRepository models the conditional-update semantics in memory.
type fakeRepository struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int
}

func newFakeRepository(balances map[uuid.UUID]int) *fakeRepository {
	if balances == nil {
		balances = make(map[uuid.UUID]int)
	}
	return &fakeRepository{balances: balances}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) DebitIfAvailable(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[userID]
	if !ok || balance < amount {
		return false, nil
	}
	f.balances[userID] = balance - amount
	return true, nil
}

func (f *fakeRepository) Credit(ctx context.Context, userID uuid.UUID, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.balances[userID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.balances[userID] += amount
	return nil
}

func (f *fakeRepository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestDebitAndRefundRoundTrip(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepository(map[uuid.UUID]int{userID: 5})
	svc := newTestService(t, repo)
	ctx := context.Background()

	if err := svc.Debit(ctx, userID, 3); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if balance, _ := svc.Balance(ctx, userID); balance != 2 {
		t.Fatalf("expected balance 2, got %d", balance)
	}

	if err := svc.Refund(ctx, userID, 3); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if balance, _ := svc.Balance(ctx, userID); balance != 5 {
		t.Fatalf("expected balance restored to 5, got %d", balance)
	}
}

func TestDebitDeclinesWithDetails(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepository(map[uuid.UUID]int{userID: 1})
	svc := newTestService(t, repo)

	err := svc.Debit(context.Background(), userID, 3)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientCredits {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
	details, ok := typed.Details().(InsufficientCreditsDetails)
	if !ok {
		t.Fatalf("expected details payload, got %T", typed.Details())
	}
	if details.Required != 3 || details.Available != 1 {
		t.Fatalf("unexpected details %+v", details)
	}

	// Balance untouched after a declined debit.
	if balance, _ := svc.Balance(context.Background(), userID); balance != 1 {
		t.Fatalf("declined debit must not change balance, got %d", balance)
	}
}

func TestDebitMissingUserReadsZeroAvailable(t *testing.T) {
	svc := newTestService(t, newFakeRepository(nil))

	err := svc.Debit(context.Background(), uuid.New(), 1)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientCredits {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
	details := typed.Details().(InsufficientCreditsDetails)
	if details.Available != 0 {
		t.Fatalf("missing user should read as zero available, got %d", details.Available)
	}
}

func TestConcurrentDebitsCannotOverspend(t *testing.T) {
	userID := uuid.New()
	repo := newFakeRepository(map[uuid.UUID]int{userID: 3})
	svc := newTestService(t, repo)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Debit(context.Background(), userID, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 3 {
		t.Fatalf("expected exactly 3 successful debits, got %d", succeeded)
	}
	if balance, _ := svc.Balance(context.Background(), userID); balance != 0 {
		t.Fatalf("expected zero balance, got %d", balance)
	}
}

func TestGrantMissingUser(t *testing.T) {
	svc := newTestService(t, newFakeRepository(nil))
	err := svc.Grant(context.Background(), uuid.New(), 10)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAmountValidation(t *testing.T) {
	userID := uuid.New()
	svc := newTestService(t, newFakeRepository(map[uuid.UUID]int{userID: 5}))

	for _, amount := range []int{0, -1} {
		if err := svc.Debit(context.Background(), userID, amount); err == nil {
			t.Fatalf("debit of %d must be rejected", amount)
		}
		if err := svc.Grant(context.Background(), userID, amount); err == nil {
			t.Fatalf("grant of %d must be rejected", amount)
		}
	}
}
