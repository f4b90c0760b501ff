package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/cctvmagic/videomagic-backend/internal/catalog"
	"github.com/cctvmagic/videomagic-backend/internal/credits"
	"github.com/cctvmagic/videomagic-backend/internal/transactions"
	"github.com/cctvmagic/videomagic-backend/internal/users"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/metrics"
)

const metricsSource = "stripe"

// customerAPI fetches the customer when the session carries no usable email.
type customerAPI interface {
	Retrieve(ctx context.Context, id string, params *stripe.CustomerRetrieveParams) (*stripe.Customer, error)
}

// ServiceParams wires the webhook processor dependencies.
type ServiceParams struct {
	Users        users.Service
	Credits      credits.Service
	Transactions transactions.Service
	Customers    customerAPI
	Metrics      *metrics.PlatformMetrics
	Logger       *logger.Logger
}

// Service turns verified Stripe events into credit grants. Every path is
// safe to replay: the event guard at the HTTP layer, the session lookup and
// the unique session constraint each stop a duplicate at a different layer.
type Service struct {
	users        users.Service
	credits      credits.Service
	transactions transactions.Service
	customers    customerAPI
	metrics      *metrics.PlatformMetrics
	logg         *logger.Logger
}

// NewService validates dependencies and returns the processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users service required")
	}
	if params.Credits == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credits service required")
	}
	if params.Transactions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transactions service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		users:        params.Users,
		credits:      params.Credits,
		transactions: params.Transactions,
		customers:    params.Customers,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// HandleEvent routes the verified event. Unknown event types are acknowledged
// without side effects so Stripe does not retry them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding checkout session")
		}
		return s.processSession(ctx, &session)
	default:
		s.metrics.IncWebhookSkipped(metricsSource, "unhandled_type")
		return nil
	}
}

// processSession grants the purchased credits for one completed session.
func (s *Service) processSession(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session required")
	}
	ctx = s.logg.WithField(ctx, "session_id", session.ID)

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.metrics.IncWebhookSkipped(metricsSource, "unpaid")
		s.logg.Info(ctx, "skipping unpaid session")
		return nil
	}
	if session.Status != stripe.CheckoutSessionStatusComplete {
		s.metrics.IncWebhookSkipped(metricsSource, "incomplete")
		s.logg.Info(ctx, "skipping incomplete session")
		return nil
	}

	if _, err := s.transactions.FindBySessionID(ctx, session.ID); err == nil {
		s.metrics.IncWebhookSkipped(metricsSource, "already_recorded")
		s.logg.Info(ctx, "session already credited")
		return nil
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return err
	}

	pkg, err := s.resolvePackage(session)
	if err != nil {
		// Acknowledged, not retried: a session that matches no package
		// (test-mode payments, retired prices) will never start matching.
		s.metrics.IncWebhookRejected(metricsSource, "unknown_package")
		s.logg.Error(ctx, "session matches no credit package", err)
		return nil
	}

	userID, email, err := s.resolveUser(ctx, session)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			// Acknowledged, not retried: no amount of redelivery will
			// resolve the payer, a human has to reconcile this session.
			s.metrics.IncWebhookRejected(metricsSource, "unresolved_user")
			s.logg.Error(ctx, "session payer could not be resolved", err)
			return nil
		}
		return err
	}
	ctx = s.logg.WithUserID(ctx, userID.String())

	if email != "" {
		if err := s.users.EnsureExists(ctx, userID, email); err != nil {
			return err
		}
	}

	if err := s.credits.Grant(ctx, userID, pkg.Credits); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// Referenced account has no row and the session carried no
			// email to create one from. Redelivery cannot fix that.
			s.metrics.IncWebhookRejected(metricsSource, "unknown_user")
			s.logg.Error(ctx, "credited account does not exist", err)
			return nil
		}
		return err
	}
	s.metrics.AddCreditsGranted(pkg.Credits)

	// The purchase record is best effort once credits are granted; a replay
	// that raced past the lookup lands on the unique session constraint.
	_, err = s.transactions.Record(ctx, transactions.RecordInput{
		UserID:           userID,
		AmountCents:      session.AmountTotal,
		CreditsPurchased: pkg.Credits,
		StripeSessionID:  session.ID,
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeIdempotency {
			s.logg.Warn(ctx, "concurrent delivery recorded this session first")
		} else {
			s.logg.Error(ctx, "recording purchase after credit grant", err)
		}
	}

	s.metrics.IncWebhookHandled(metricsSource)
	s.logg.Info(ctx, fmt.Sprintf("granted %d credits for %s", pkg.Credits, pkg.ID))
	return nil
}

// resolvePackage matches the paid amount against the static catalog, falling
// back to the packageId stamped into the session metadata at creation time.
func (s *Service) resolvePackage(session *stripe.CheckoutSession) (catalog.CreditPackage, error) {
	if pkg, ok := catalog.PackageByPrice(session.AmountTotal); ok {
		return pkg, nil
	}
	if id := session.Metadata["packageId"]; id != "" {
		if pkg, ok := catalog.PackageByID(id); ok {
			return pkg, nil
		}
	}
	return catalog.CreditPackage{}, pkgerrors.New(pkgerrors.CodeValidation, "session matches no credit package").
		WithDetails(map[string]any{"amount_total": session.AmountTotal})
}

// resolveUser finds who to credit. The explicit reference stamped at session
// creation wins; a session without one (or with a mangled one) falls back to
// matching the payer's email against existing accounts, fetching the customer
// object when the session itself carries no email.
func (s *Service) resolveUser(ctx context.Context, session *stripe.CheckoutSession) (uuid.UUID, string, error) {
	raw := strings.TrimSpace(session.ClientReferenceID)
	if raw == "" {
		raw = strings.TrimSpace(session.Metadata["userId"])
	}
	email := s.resolveEmail(ctx, session)

	if raw != "" {
		userID, err := uuid.Parse(raw)
		if err == nil {
			return userID, email, nil
		}
		s.logg.Warn(ctx, "unparsable user reference, trying email match")
	}

	if email != "" {
		user, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			return user.ID, email, nil
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			return uuid.Nil, "", err
		}
	}

	return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "session matches no user").
		WithDetails(map[string]any{"has_email": email != ""})
}

// resolveEmail tries the session first and only then the customer object.
func (s *Service) resolveEmail(ctx context.Context, session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	if session.CustomerEmail != "" {
		return session.CustomerEmail
	}
	if s.customers != nil && session.Customer != nil && session.Customer.ID != "" {
		customer, err := s.customers.Retrieve(ctx, session.Customer.ID, nil)
		if err != nil {
			s.logg.Warn(ctx, "customer lookup failed, creating user without email")
			return ""
		}
		return customer.Email
	}
	return ""
}
