package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/cctvmagic/videomagic-backend/internal/catalog"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

// sessionAPI is the slice of Stripe's checkout session service we call.
type sessionAPI interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	Retrieve(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error)
}

// Session is the slim view handed back to the frontend's embedded checkout.
type Session struct {
	SessionID    string `json:"sessionId"`
	ClientSecret string `json:"clientSecret"`
}

// SessionStatus reports where a checkout session landed. Credits are granted
// by the webhook, never by this read.
type SessionStatus struct {
	SessionID     string `json:"sessionId"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

// Service starts and inspects Stripe checkout sessions.
type Service interface {
	CreateSession(ctx context.Context, userID uuid.UUID, email, packageID string) (*Session, error)
	SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Sessions    sessionAPI
	FrontendURL string
	Logger      *logger.Logger
}

type service struct {
	sessions    sessionAPI
	frontendURL string
	logg        *logger.Logger
}

// NewService validates dependencies and returns a checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("stripe sessions api required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		sessions:    params.Sessions,
		frontendURL: strings.TrimRight(params.FrontendURL, "/"),
		logg:        params.Logger,
	}, nil
}

// CreateSession opens an embedded checkout session for the chosen package.
// The user id rides along as client_reference_id and metadata so the webhook
// can credit the right account even when one of the two is missing.
func (s *service) CreateSession(ctx context.Context, userID uuid.UUID, email, packageID string) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	pkg, ok := catalog.PackageByID(packageID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown credit package").
			WithDetails(map[string]any{"packageId": packageID})
	}

	params := &stripe.CheckoutSessionCreateParams{
		UIMode:            stripe.String("embedded"),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ReturnURL:         stripe.String(s.frontendURL + "/credits?session_id={CHECKOUT_SESSION_ID}"),
		ClientReferenceID: stripe.String(userID.String()),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(pkg.PriceInCents),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripe.String(pkg.Name),
						Description: stripe.String(pkg.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"userId":    userID.String(),
			"packageId": pkg.ID,
			"credits":   strconv.Itoa(pkg.Credits),
		},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	session, err := s.sessions.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating checkout session")
	}

	s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "checkout session created")
	return &Session{
		SessionID:    session.ID,
		ClientSecret: session.ClientSecret,
	}, nil
}

func (s *service) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	session, err := s.sessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading checkout session")
	}

	status := &SessionStatus{
		SessionID:     session.ID,
		Status:        string(session.Status),
		PaymentStatus: string(session.PaymentStatus),
	}
	if session.CustomerDetails != nil {
		status.CustomerEmail = session.CustomerDetails.Email
	}
	return status, nil
}
