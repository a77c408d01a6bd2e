package billable

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/billing_store"
	"github.com/fatflowers/fastspring-cashier/internal/models"
	"github.com/fatflowers/fastspring-cashier/internal/platform/fastspring"
	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

var (
	ErrNotImplemented  = errors.New("not implemented")
	ErrNoFastspringID  = errors.New("owner has no fastspring id")
	ErrNoManagementURL = errors.New("fastspring returned no account management url")
)

type Store interface {
	FindOwner(ctx context.Context, id string) (*models.User, error)
	SetOwnerFastspringID(ctx context.Context, ownerID, fastspringID string) error
	LatestSubscriptionByName(ctx context.Context, ownerID, name string) (*models.Subscription, error)
	ListSubscriptionsByOwner(ctx context.Context, ownerID string) ([]*models.Subscription, error)
	ListInvoicesByOwner(ctx context.Context, ownerID string) ([]*models.Invoice, error)
}

type Client interface {
	CreateAccount(ctx context.Context, req *fastspring.AccountRequest) (*fastspring.AccountResponse, error)
	UpdateAccount(ctx context.Context, accountID string, req *fastspring.AccountRequest) (*fastspring.AccountResponse, error)
	GetAccount(ctx context.Context, accountID string) (*fastspring.Account, error)
	GetAccounts(ctx context.Context, filter map[string]string) (*fastspring.AccountsResponse, error)
	GetAccountManagementURI(ctx context.Context, accountID string) (*fastspring.AccountsResponse, error)
	CreateSession(ctx context.Context, req *fastspring.SessionRequest) (*fastspring.Session, error)
}

// Service gives owners their billing behavior: subscription queries, the
// Fastspring customer lifecycle and checkout sessions.
type Service struct {
	store  Store
	client Client
	log    *zap.SugaredLogger
}

func New(store Store, client Client, log *zap.SugaredLogger) *Service {
	return &Service{store: store, client: client, log: log}
}

func (s *Service) FindOwner(ctx context.Context, id string) (*models.User, error) {
	return s.store.FindOwner(ctx, id)
}

// Subscription returns the newest subscription of owner called name. A
// missing subscription is reported as (nil, nil).
func (s *Service) Subscription(ctx context.Context, owner Owner, name string) (*models.Subscription, error) {
	if name == "" {
		name = types.DefaultSubscriptionName
	}
	sub, err := s.store.LatestSubscriptionByName(ctx, owner.GetID(), name)
	if errors.Is(err, billing_store.ErrSubscriptionNotFound) {
		return nil, nil
	}
	return sub, err
}

func (s *Service) Subscriptions(ctx context.Context, owner Owner) ([]*models.Subscription, error) {
	return s.store.ListSubscriptionsByOwner(ctx, owner.GetID())
}

func (s *Service) Invoices(ctx context.Context, owner Owner) ([]*models.Invoice, error) {
	return s.store.ListInvoicesByOwner(ctx, owner.GetID())
}

// Subscribed reports whether the named subscription is valid, and on plan
// when plan is not empty.
func (s *Service) Subscribed(ctx context.Context, owner Owner, name, plan string) (bool, error) {
	sub, err := s.Subscription(ctx, owner, name)
	if err != nil || sub == nil {
		return false, err
	}
	return sub.Valid() && (plan == "" || sub.Plan == plan), nil
}

func (s *Service) OnTrial(ctx context.Context, owner Owner, name, plan string) (bool, error) {
	sub, err := s.Subscription(ctx, owner, name)
	if err != nil || sub == nil {
		return false, err
	}
	return sub.OnTrial() && (plan == "" || sub.Plan == plan), nil
}

func (s *Service) SubscribedToPlan(ctx context.Context, owner Owner, plans []string, name string) (bool, error) {
	sub, err := s.Subscription(ctx, owner, name)
	if err != nil || sub == nil || !sub.Valid() {
		return false, err
	}
	return lo.Contains(plans, sub.Plan), nil
}

// OnPlan reports whether any valid subscription of owner is on plan.
func (s *Service) OnPlan(ctx context.Context, owner Owner, plan string) (bool, error) {
	subs, err := s.Subscriptions(ctx, owner)
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(subs, func(sub *models.Subscription) bool {
		return sub.Plan == plan && sub.Valid()
	}), nil
}

func (s *Service) SubscriptionInfo(ctx context.Context, owner Owner, name string) (*types.BillableSubscriptionInfo, error) {
	sub, err := s.Subscription(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, billing_store.ErrSubscriptionNotFound
	}
	return &types.BillableSubscriptionInfo{
		Name:     sub.Name,
		Plan:     sub.Plan,
		State:    sub.State,
		Valid:    sub.Valid(),
		OnTrial:  sub.OnTrial(),
		Quantity: sub.Quantity,
	}, nil
}

func (s *Service) HasFastspringID(owner Owner) bool {
	return owner.GetFastspringID() != ""
}

func defaultAccountRequest(owner Owner) *fastspring.AccountRequest {
	return &fastspring.AccountRequest{
		Contact: fastspring.Contact{
			First:   ExtractFirstName(owner.GetName()),
			Last:    ExtractLastName(owner.GetName()),
			Email:   owner.GetEmail(),
			Company: owner.GetCompany(),
			Phone:   owner.GetPhone(),
		},
		Language: owner.GetLanguage(),
		Country:  owner.GetCountry(),
	}
}

// CreateAsFastspringCustomer creates the remote account and stores its id on
// the owner. A nil req is built from the owner's own fields.
func (s *Service) CreateAsFastspringCustomer(ctx context.Context, owner Owner, req *fastspring.AccountRequest) (*fastspring.AccountResponse, error) {
	if req == nil {
		req = defaultAccountRequest(owner)
	}
	resp, err := s.client.CreateAccount(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.attachFastspringID(ctx, owner, resp.Account); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) UpdateAsFastspringCustomer(ctx context.Context, owner Owner, req *fastspring.AccountRequest) (*fastspring.AccountResponse, error) {
	if !s.HasFastspringID(owner) {
		return nil, ErrNoFastspringID
	}
	if req == nil {
		req = defaultAccountRequest(owner)
	}
	return s.client.UpdateAccount(ctx, owner.GetFastspringID(), req)
}

func (s *Service) AsFastspringCustomer(ctx context.Context, owner Owner) (*fastspring.Account, error) {
	if !s.HasFastspringID(owner) {
		return nil, ErrNoFastspringID
	}
	return s.client.GetAccount(ctx, owner.GetFastspringID())
}

func (s *Service) AccountManagementURI(ctx context.Context, owner Owner) (string, error) {
	if !s.HasFastspringID(owner) {
		return "", ErrNoFastspringID
	}
	resp, err := s.client.GetAccountManagementURI(ctx, owner.GetFastspringID())
	if err != nil {
		return "", err
	}
	if len(resp.Accounts) == 0 || resp.Accounts[0].URL == "" {
		return "", ErrNoManagementURL
	}
	return resp.Accounts[0].URL, nil
}

// Charge is not offered by Fastspring for stored customers.
func (s *Service) Charge(context.Context, Owner, float64) error {
	return ErrNotImplemented
}

func (s *Service) Refund(context.Context, Owner, string) error {
	return ErrNotImplemented
}

func (s *Service) NewSubscription(owner Owner, name, plan string) *SubscriptionBuilder {
	return &SubscriptionBuilder{svc: s, owner: owner, name: name, plan: plan, quantity: 1}
}

// StartSubscription opens a checkout session for owner through the
// subscription builder. A non-positive quantity keeps the default of one.
func (s *Service) StartSubscription(ctx context.Context, owner Owner, name, plan string, quantity int, coupon string) (*fastspring.Session, error) {
	b := s.NewSubscription(owner, name, plan).WithCoupon(coupon)
	if quantity > 0 {
		b.Quantity(quantity)
	}
	return b.Create(ctx)
}

func (s *Service) attachFastspringID(ctx context.Context, owner Owner, accountID string) error {
	if err := s.store.SetOwnerFastspringID(ctx, owner.GetID(), accountID); err != nil {
		return fmt.Errorf("failed to store fastspring id: %w", err)
	}
	owner.SetFastspringID(accountID)
	logctx.FromCtx(ctx, s.log).Infow("fastspring_account_linked", "owner_id", owner.GetID(), "fastspring_id", accountID)
	return nil
}
