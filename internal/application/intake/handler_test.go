package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/go-identity-worker/internal/application/notify"
	"github.com/go-identity-worker/internal/application/provision"
	"github.com/go-identity-worker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvisioner struct{ mock.Mock }

func (m *mockProvisioner) Provision(ctx context.Context, eventID string, d domain.Provisioning) (provision.Result, error) {
	args := m.Called(ctx, eventID, d)
	return args.Get(0).(provision.Result), args.Error(1)
}

func (m *mockProvisioner) AttachPaymentMethod(ctx context.Context, eventID string, d domain.PaymentMethodAttached) (provision.Result, error) {
	args := m.Called(ctx, eventID, d)
	return args.Get(0).(provision.Result), args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Compose(n domain.Notification) (domain.Email, error) {
	args := m.Called(n)
	return args.Get(0).(domain.Email), args.Error(1)
}

func (m *mockDispatcher) Dispatch(ctx context.Context, eventID string, n domain.Notification) (notify.Result, error) {
	args := m.Called(ctx, eventID, n)
	return args.Get(0).(notify.Result), args.Error(1)
}

type mockRouter struct{ mock.Mock }

func (m *mockRouter) Route(ctx context.Context, env domain.Envelope, attempt int, cause error) error {
	return m.Called(ctx, env, attempt, cause).Error(0)
}

func env(typ domain.EventType, detail string) domain.Envelope {
	return domain.Envelope{ID: "evt-1", Source: "service.billing", DetailType: typ, Detail: json.RawMessage(detail)}
}

const licenseDetail = `{"licenseId":"lic-1","licenseKey":"KEY","licenseType":"pro","customerEmail":"a@x.com","customerName":"Ada"}`

func newHandler() (*Handler, *mockProvisioner, *mockDispatcher, *mockRouter) {
	p, d, r := new(mockProvisioner), new(mockDispatcher), new(mockRouter)
	return NewHandler(HandlerDeps{Provisioner: p, Dispatcher: d, Router: r}), p, d, r
}

func TestHandle_ProvisioningEvent(t *testing.T) {
	ctx := context.Background()
	h, p, d, r := newHandler()
	e := env(domain.EventLicenseCreated, licenseDetail)
	p.On("Provision", ctx, "evt-1", mock.AnythingOfType("domain.LicenseCreated")).
		Return(provision.Result{Outcome: provision.Created}, nil).Once()
	r.On("Route", ctx, e, 0, nil).Return(nil).Once()

	require.NoError(t, h.Handle(ctx, e, 0))
	p.AssertExpectations(t)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_PaymentMethodAttachedIsNotProvisioning(t *testing.T) {
	ctx := context.Background()
	h, p, _, r := newHandler()
	e := env(domain.EventPaymentMethodAttached,
		`{"stripeCustomerId":"cus_1","stripePaymentMethodId":"pm_1","paymentMethodType":"card","customerData":{"email":"a@x.com"}}`)
	p.On("AttachPaymentMethod", ctx, "evt-1", mock.AnythingOfType("domain.PaymentMethodAttached")).
		Return(provision.Result{Outcome: provision.Updated}, nil).Once()
	r.On("Route", ctx, e, 1, nil).Return(nil).Once()

	require.NoError(t, h.Handle(ctx, e, 1))
	p.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_NotificationEvent(t *testing.T) {
	ctx := context.Background()
	h, p, d, r := newHandler()
	e := env(domain.EventReEngagement, `{"customerEmail":"a@x.com","daysSinceLastScan":30,"dashboardUrl":"/d"}`)
	d.On("Dispatch", ctx, "evt-1", mock.AnythingOfType("domain.ReEngagement")).
		Return(notify.Result{Outcome: notify.Suppressed}, nil).Once()
	r.On("Route", ctx, e, 0, nil).Return(nil).Once()

	require.NoError(t, h.Handle(ctx, e, 0))
	d.AssertExpectations(t)
	p.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_InvalidPayloadReachesRouterBeforeSideEffects(t *testing.T) {
	ctx := context.Background()
	h, p, d, r := newHandler()
	e := env(domain.EventLicenseCreated, `{"licenseId":"lic-1","licenseKey":"KEY","licenseType":"pro"}`)
	r.On("Route", ctx, e, 0, mock.MatchedBy(func(err error) bool {
		return errors.Is(err, domain.ErrInvalidPayload)
	})).Return(nil).Once()

	require.NoError(t, h.Handle(ctx, e, 0))
	r.AssertExpectations(t)
	p.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything, mock.Anything)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_RouterDecisionIsReturned(t *testing.T) {
	ctx := context.Background()
	h, p, _, r := newHandler()
	e := env(domain.EventLicenseCreated, licenseDetail)
	cause := fmt.Errorf("create identity: %w", domain.ErrTransient)
	p.On("Provision", ctx, "evt-1", mock.Anything).Return(provision.Result{}, cause).Once()
	r.On("Route", ctx, e, 0, cause).Return(cause).Once()

	err := h.Handle(ctx, e, 0)

	assert.Same(t, cause, err)
}

func TestHandle_DefaultRouterParksInvalidPayload(t *testing.T) {
	p, d := new(mockProvisioner), new(mockDispatcher)
	h := NewHandler(HandlerDeps{Provisioner: p, Dispatcher: d})

	err := h.Handle(context.Background(), env("Unknown", `{}`), 0)

	require.NoError(t, err)
}

func TestPreview_Notification(t *testing.T) {
	h, _, d, _ := newHandler()
	d.On("Compose", mock.AnythingOfType("domain.ReEngagement")).
		Return(domain.Email{Subject: "We miss you! - CDK Insights"}, nil).Once()

	email, err := h.Preview(env(domain.EventReEngagement, `{"customerEmail":"a@x.com","daysSinceLastScan":30,"dashboardUrl":"/d"}`))

	require.NoError(t, err)
	assert.Equal(t, "We miss you! - CDK Insights", email.Subject)
}

func TestPreview_RejectsProvisioningEvents(t *testing.T) {
	h, _, d, _ := newHandler()

	_, err := h.Preview(env(domain.EventLicenseCreated, licenseDetail))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPayload))
	d.AssertNotCalled(t, "Compose", mock.Anything)
}
