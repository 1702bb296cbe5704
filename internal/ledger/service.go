package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
	"github.com/leadhiveapp/leadhive-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier delivers best-effort post-purchase notifications. Failures are
// logged and never convert into operation failures.
type Notifier interface {
	NotifyPurchase(ctx context.Context, userID, leadID, purchaseID uuid.UUID) error
}

// Service is the transactional core of the marketplace: it owns every
// balance mutation and the append-only transaction log backing it.
type Service interface {
	PurchaseLead(ctx context.Context, userID, leadID uuid.UUID) (*PurchaseReceipt, error)
	SubmitFeedback(ctx context.Context, userID, leadID uuid.UUID, input FeedbackInput) (*FeedbackReceipt, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*DepositReceipt, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params ListTransactionsParams) (*TransactionPage, error)
}

// PurchaseReceipt is returned on a successful purchase. Lead carries the full
// unmasked contact payload: buying is what unlocks it.
type PurchaseReceipt struct {
	Purchase   *models.Purchase `json:"purchase"`
	NewBalance decimal.Decimal  `json:"new_balance"`
	Lead       *models.Lead     `json:"lead"`
}

// FeedbackReceipt is returned on a successful feedback submission.
type FeedbackReceipt struct {
	Feedback   *models.LeadFeedback `json:"feedback"`
	Reward     decimal.Decimal      `json:"reward"`
	NewBalance decimal.Decimal      `json:"new_balance"`
}

// DepositReceipt is returned when a balance credit is applied.
type DepositReceipt struct {
	Transaction *models.Transaction `json:"transaction"`
	NewBalance  decimal.Decimal     `json:"new_balance"`
}

// FeedbackInput captures the booking outcome for a purchased lead.
type FeedbackInput struct {
	Booked         bool
	Responsiveness enums.LeadResponsiveness
	TimeToBookDays *int
	AmountCharged  *decimal.Decimal
}

// ListTransactionsParams configures the paginated ledger listing.
type ListTransactionsParams struct {
	Limit  int
	Cursor string
}

// TransactionPage wraps a page of ledger rows and the next cursor.
type TransactionPage struct {
	Items  []models.Transaction `json:"items"`
	Cursor string               `json:"cursor"`
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Tx       txRunner
	Repo     Repository
	Notifier Notifier
	Logger   *logger.Logger

	// LeadPrice applies when a lead carries no price of its own.
	LeadPrice       decimal.Decimal
	VendorTypeLimit int
	FeedbackReward  decimal.Decimal
}

type service struct {
	tx       txRunner
	repo     Repository
	notifier Notifier
	logg     *logger.Logger

	leadPrice       decimal.Decimal
	vendorTypeLimit int
	feedbackReward  decimal.Decimal
}

// NewService wires the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.LeadPrice.IsNegative() {
		return nil, fmt.Errorf("lead price must not be negative")
	}
	if params.VendorTypeLimit <= 0 {
		return nil, fmt.Errorf("vendor type limit must be positive")
	}
	if params.FeedbackReward.IsNegative() {
		return nil, fmt.Errorf("feedback reward must not be negative")
	}
	return &service{
		tx:              params.Tx,
		repo:            params.Repo,
		notifier:        params.Notifier,
		logg:            params.Logger,
		leadPrice:       params.LeadPrice,
		vendorTypeLimit: params.VendorTypeLimit,
		feedbackReward:  params.FeedbackReward,
	}, nil
}

func (s *service) PurchaseLead(ctx context.Context, userID, leadID uuid.UUID) (*PurchaseReceipt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if leadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead id required")
	}

	var receipt *PurchaseReceipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
			}
			return storageErr(err, "load user")
		}

		// The row lock serializes concurrent attempts on the same lead for
		// the remainder of the transaction.
		lead, err := repo.FindLeadForUpdate(ctx, leadID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "lead not found")
			}
			return storageErr(err, "lock lead")
		}

		if lead.Status != enums.LeadStatusAvailable || !lead.Active {
			return pkgerrors.New(pkgerrors.CodeLeadSold, "lead is no longer available").
				WithDetails(map[string]any{"status": lead.Status})
		}

		price := lead.Price
		if price.IsZero() {
			price = s.leadPrice
		}

		// The cap is per vendor category, not a global sold-out flag: the
		// lead stays available to other categories after this sale.
		if user.VendorType != nil {
			count, err := repo.CountVendorTypePurchases(ctx, leadID, *user.VendorType)
			if err != nil {
				return storageErr(err, "count vendor type purchases")
			}
			if count >= int64(s.vendorTypeLimit) {
				return pkgerrors.New(pkgerrors.CodeVendorTypeLimit,
					fmt.Sprintf("purchase limit of %d for vendor type %q reached", s.vendorTypeLimit, *user.VendorType)).
					WithDetails(map[string]any{"limit": s.vendorTypeLimit, "vendor_type": *user.VendorType})
			}
		}

		purchased, err := repo.HasPurchase(ctx, userID, leadID)
		if err != nil {
			return storageErr(err, "check existing purchase")
		}
		if purchased {
			return pkgerrors.New(pkgerrors.CodeAlreadyPurchased, "lead already purchased")
		}

		// Conditional debit: the predicate rides in the UPDATE itself, so two
		// concurrent purchases can never both succeed against an initially
		// sufficient balance.
		debited, err := repo.DebitBalance(ctx, userID, price)
		if err != nil {
			return storageErr(err, "debit balance")
		}
		if !debited {
			// Re-read only for the error message; the decision was the
			// zero-row update.
			balance, readErr := repo.GetBalance(ctx, userID)
			details := map[string]any{"required": price}
			if readErr == nil {
				details["balance"] = balance
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds,
				fmt.Sprintf("balance below lead price %s", price)).WithDetails(details)
		}

		newBalance, err := repo.GetBalance(ctx, userID)
		if err != nil {
			return storageErr(err, "read balance after debit")
		}

		purchase := &models.Purchase{
			ID:          uuid.New(),
			UserID:      userID,
			LeadID:      leadID,
			AmountPaid:  price,
			PurchasedAt: time.Now().UTC(),
		}
		if err := repo.CreatePurchase(ctx, purchase); err != nil {
			if db.IsUniqueViolation(err, "idx_purchases_user_lead") {
				return pkgerrors.Wrap(pkgerrors.CodeAlreadyPurchased, err, "lead already purchased")
			}
			return storageErr(err, "create purchase")
		}

		metadata, err := json.Marshal(map[string]string{
			"lead_id":     leadID.String(),
			"purchase_id": purchase.ID.String(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode transaction metadata")
		}
		txn := &models.Transaction{
			ID:           uuid.New(),
			UserID:       userID,
			Amount:       price.Neg(),
			Type:         enums.TransactionTypePurchase,
			BalanceAfter: newBalance,
			Metadata:     metadata,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return storageErr(err, "append purchase transaction")
		}

		receipt = &PurchaseReceipt{
			Purchase:   purchase,
			NewBalance: newBalance,
			Lead:       lead,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logPurchase(ctx, receipt)
	s.notifyPurchase(ctx, receipt)
	return receipt, nil
}

func (s *service) SubmitFeedback(ctx context.Context, userID, leadID uuid.UUID, input FeedbackInput) (*FeedbackReceipt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if leadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead id required")
	}
	if err := validateFeedbackInput(input); err != nil {
		return nil, err
	}

	var receipt *FeedbackReceipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchased, err := repo.HasPurchase(ctx, userID, leadID)
		if err != nil {
			return storageErr(err, "check purchase")
		}
		if !purchased {
			return pkgerrors.New(pkgerrors.CodeForbidden, "feedback requires a purchased lead")
		}

		submitted, err := repo.HasFeedback(ctx, userID, leadID)
		if err != nil {
			return storageErr(err, "check existing feedback")
		}
		if submitted {
			return pkgerrors.New(pkgerrors.CodeAlreadySubmitted, "feedback already submitted")
		}

		feedback := &models.LeadFeedback{
			ID:             uuid.New(),
			UserID:         userID,
			LeadID:         leadID,
			Booked:         input.Booked,
			Responsiveness: input.Responsiveness,
			TimeToBookDays: input.TimeToBookDays,
			AmountCharged:  input.AmountCharged,
		}
		if err := repo.CreateFeedback(ctx, feedback); err != nil {
			// The unique index is the primary double-credit guard.
			if db.IsUniqueViolation(err, "idx_lead_feedback_user_lead") {
				return pkgerrors.Wrap(pkgerrors.CodeAlreadySubmitted, err, "feedback already submitted")
			}
			return storageErr(err, "create feedback")
		}

		txn, err := s.credit(ctx, repo, userID, s.feedbackReward,
			enums.TransactionTypeFeedbackReward, map[string]string{
				"lead_id":     leadID.String(),
				"feedback_id": feedback.ID.String(),
			})
		if err != nil {
			return err
		}

		receipt = &FeedbackReceipt{
			Feedback:   feedback,
			Reward:     s.feedbackReward,
			NewBalance: txn.BalanceAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *service) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*DepositReceipt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}

	var receipt *DepositReceipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := s.credit(ctx, repo, userID, amount, enums.TransactionTypeDeposit,
			map[string]string{"reference": reference})
		if err != nil {
			return err
		}

		receipt = &DepositReceipt{Transaction: txn, NewBalance: txn.BalanceAfter}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// credit applies a positive balance change plus its paired ledger row and
// returns that row. It uses the same conditional-update primitive as the
// debit path so a relaxed uniqueness constraint upstream cannot silently
// double-credit.
func (s *service) credit(ctx context.Context, repo Repository, userID uuid.UUID, amount decimal.Decimal, txnType enums.TransactionType, meta map[string]string) (*models.Transaction, error) {
	credited, err := repo.CreditBalance(ctx, userID, amount)
	if err != nil {
		return nil, storageErr(err, "credit balance")
	}
	if !credited {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	newBalance, err := repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, storageErr(err, "read balance after credit")
	}

	metadata, err := json.Marshal(meta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode transaction metadata")
	}
	txn := &models.Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		Amount:       amount,
		Type:         txnType,
		BalanceAfter: newBalance,
		Metadata:     metadata,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, storageErr(err, "append credit transaction")
	}
	return txn, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return decimal.Zero, storageErr(err, "read balance")
	}
	return balance, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params ListTransactionsParams) (*TransactionPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := ListTransactionsQuery{
		UserID: userID,
		Limit:  pagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListTransactions(ctx, query)
	if err != nil {
		return nil, storageErr(err, "list transactions")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &TransactionPage{Items: rows, Cursor: cursor}, nil
}

func validateFeedbackInput(input FeedbackInput) error {
	if !input.Responsiveness.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid responsiveness").
			WithDetails(map[string]string{"responsiveness": "must be responsive, ghosted, or partial"})
	}
	if input.Booked {
		details := map[string]string{}
		if input.TimeToBookDays == nil {
			details["time_to_book_days"] = "is required when booked"
		}
		if input.AmountCharged == nil {
			details["amount_charged"] = "is required when booked"
		}
		if len(details) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "booked feedback requires booking details").
				WithDetails(details)
		}
		if input.AmountCharged.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount charged must not be negative")
		}
		if *input.TimeToBookDays < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "time to book must not be negative")
		}
	}
	return nil
}

func (s *service) logPurchase(ctx context.Context, receipt *PurchaseReceipt) {
	if s.logg == nil || receipt == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"lead_id":     receipt.Purchase.LeadID.String(),
		"purchase_id": receipt.Purchase.ID.String(),
		"amount":      receipt.Purchase.AmountPaid.String(),
	})
	s.logg.Info(ctx, "lead purchased")
}

func (s *service) notifyPurchase(ctx context.Context, receipt *PurchaseReceipt) {
	if s.notifier == nil || receipt == nil {
		return
	}
	err := s.notifier.NotifyPurchase(ctx, receipt.Purchase.UserID, receipt.Purchase.LeadID, receipt.Purchase.ID)
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "purchase_id", receipt.Purchase.ID.String()),
			"purchase notification failed")
	}
}

// storageErr classifies storage failures: serialization/deadlock aborts are
// surfaced as retryable, everything else as a dependency failure.
func storageErr(err error, message string) error {
	if db.IsRetryableConflict(err) {
		return pkgerrors.Wrap(pkgerrors.CodeStorageConflict, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
