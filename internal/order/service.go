package order

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"nightbite-be/internal/auth"
	"nightbite-be/internal/logger"
	"nightbite-be/internal/menu"
	"nightbite-be/internal/metrics"
	"nightbite-be/internal/utils"

	"go.uber.org/zap"
)

const (
	verificationCodeLength = 6
	taxPercent             = 10
	defaultDeliveryWindow  = 45 * time.Minute
)

type Service interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error)
	GetOrder(ctx context.Context, orderNumber string, actor Actor) (*Order, error)
	AdvanceStatus(ctx context.Context, orderNumber, requested string, actor Actor) (*Order, error)
	VerifyAndHandover(ctx context.Context, orderNumber, suppliedCode string, actor Actor) (*Order, error)
	CancelOrder(ctx context.Context, orderNumber string, actor Actor) (*Order, error)
	AssignDeliveryPartner(ctx context.Context, orderNumber string, partnerID uint, actor Actor) (*Order, error)
	History(ctx context.Context, orderNumber string, actor Actor) ([]StatusChange, error)
}

// MenuReader is the slice of the menu store needed to snapshot items.
type MenuReader interface {
	GetItems(ctx context.Context, restaurantID uint, ids []uint) ([]menu.Item, error)
}

// AttemptLimiter counts failed handover codes per order.
type AttemptLimiter interface {
	Locked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// Notifier is told about every status change. It must not block for long and
// its failures never fail the transition.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, o *Order, from Status)
}

type ServiceConfig struct {
	DeliveryFee    int64
	DeliveryWindow time.Duration
	Limiter        AttemptLimiter
	Notifier       Notifier
	Metrics        *metrics.Registry
}

type service struct {
	repo     Repository
	menus    MenuReader
	limiter  AttemptLimiter
	notifier Notifier
	metrics  *metrics.Registry

	deliveryFee    int64
	deliveryWindow time.Duration

	now            func() time.Time
	newOrderNumber func() string
	newCode        func() (string, error)
}

func NewService(repo Repository, menus MenuReader, cfg ServiceConfig) Service {
	s := &service{
		repo:           repo,
		menus:          menus,
		limiter:        cfg.Limiter,
		notifier:       cfg.Notifier,
		metrics:        cfg.Metrics,
		deliveryFee:    cfg.DeliveryFee,
		deliveryWindow: cfg.DeliveryWindow,
		now:            func() time.Time { return time.Now().UTC() },
		newOrderNumber: utils.GenerateOrderNumber,
		newCode: func() (string, error) {
			return utils.GenerateVerificationCode(verificationCodeLength)
		},
	}
	if s.deliveryWindow <= 0 {
		s.deliveryWindow = defaultDeliveryWindow
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRegistry()
	}
	return s
}

func (s *service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Uint("customer_id", in.CustomerID),
		zap.Uint("restaurant_id", in.RestaurantID),
	)

	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	// 1. Merge repeated lines
	quantities := make(map[uint]int, len(in.Items))
	var ids []uint
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrEmptyOrder)
		}
		if _, seen := quantities[it.MenuItemID]; !seen {
			ids = append(ids, it.MenuItemID)
		}
		quantities[it.MenuItemID] += it.Quantity
	}

	// 2. Snapshot menu items
	found, err := s.menus.GetItems(ctx, in.RestaurantID, ids)
	if err != nil {
		log.Error("failed to load menu items", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	byID := make(map[uint]menu.Item, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}

	items := make([]OrderItem, 0, len(ids))
	var subtotal int64
	for _, id := range ids {
		m, ok := byID[id]
		if !ok || !m.Available {
			log.Warn("menu item unavailable", zap.Uint("menu_item_id", id))
			return nil, fmt.Errorf("%w: %d", ErrMenuItemUnavailable, id)
		}
		qty := quantities[id]
		line := m.Price * int64(qty)
		subtotal += line
		items = append(items, OrderItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			UnitPrice:  m.Price,
			Quantity:   qty,
			Subtotal:   line,
		})
	}

	// 3. Pricing
	tax := subtotal * taxPercent / 100
	total := subtotal + tax + s.deliveryFee

	code, err := s.newCode()
	if err != nil {
		log.Error("failed to generate verification code", zap.Error(err))
		return nil, err
	}

	now := s.now()
	o := &Order{
		OrderNumber:           s.newOrderNumber(),
		CustomerID:            in.CustomerID,
		RestaurantID:          in.RestaurantID,
		Status:                StatusPlaced,
		Subtotal:              subtotal,
		DeliveryFee:           s.deliveryFee,
		Tax:                   tax,
		Total:                 total,
		VerificationCode:      code,
		DeliveryAddress:       in.DeliveryAddress,
		Items:                 items,
		CreatedAt:             now,
		EstimatedDeliveryTime: now.Add(s.deliveryWindow),
	}

	// 4. Persist
	if err := s.repo.Create(ctx, o); err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	s.metrics.Inc(metrics.OrdersPlaced)
	log.Info("order placed",
		zap.String("order_number", o.OrderNumber),
		zap.Int64("total", o.Total),
		zap.Int("item_count", len(items)),
	)

	s.notify(ctx, o, "")
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, orderNumber string, actor Actor) (*Order, error) {
	o, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !canView(actor, o) {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *service) AdvanceStatus(ctx context.Context, orderNumber, requested string, actor Actor) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AdvanceStatus"),
		zap.String("order_number", orderNumber),
		zap.String("requested", requested),
		zap.String("actor_role", string(actor.Role)),
	)

	target, err := ParseStatus(requested)
	if err != nil {
		s.metrics.Inc(metrics.TransitionsRejected)
		return nil, err
	}

	o, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	// Terminal orders reject everything, whoever asks.
	if IsTerminal(o.Status) {
		s.metrics.Inc(metrics.TransitionsRejected)
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidStatusTransition, o.Status)
	}

	if !CanDrive(actor.Role, target) {
		log.Warn("actor may not drive status")
		return nil, ErrForbidden
	}
	if IsOtherPartner(actor, o) {
		log.Warn("order is assigned to another delivery partner")
		return nil, ErrForbidden
	}

	mode := ModeFor(actor.Role)
	if err := CheckTransition(o.Status, target, mode); err != nil {
		s.metrics.Inc(metrics.TransitionsRejected)
		log.Info("transition rejected", zap.String("current", string(o.Status)), zap.Error(err))
		return nil, err
	}

	now := s.now()
	upd := StatusUpdate{
		OrderID:   o.ID,
		Expected:  o.Status,
		Next:      target,
		Actor:     actor,
		ChangedAt: now,
	}

	// The handover code must exist once the food is ready.
	if target == StatusReadyForPickup && o.VerificationCode == "" {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		upd.VerificationCode = &code
	}
	if target == StatusOutForDelivery {
		upd.PickupTime = &now
	}

	return s.apply(ctx, log, o, upd)
}

func (s *service) VerifyAndHandover(ctx context.Context, orderNumber, suppliedCode string, actor Actor) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "VerifyAndHandover"),
		zap.String("order_number", orderNumber),
		zap.String("actor_role", string(actor.Role)),
	)

	if !CanHandover(actor.Role) {
		return nil, ErrForbidden
	}

	o, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if o.Status != StatusReadyForPickup {
		s.metrics.Inc(metrics.TransitionsRejected)
		return nil, fmt.Errorf("%w: handover requires %s, order is %s",
			ErrInvalidStatusTransition, StatusReadyForPickup, o.Status)
	}
	if IsOtherPartner(actor, o) {
		log.Warn("order is assigned to another delivery partner")
		return nil, ErrForbidden
	}

	if s.limiter != nil {
		locked, err := s.limiter.Locked(ctx, orderNumber)
		if err != nil {
			// Fail open: a limiter outage must not stop deliveries.
			log.Warn("attempt limiter unavailable", zap.Error(err))
		} else if locked {
			s.metrics.Inc(metrics.HandoverLockouts)
			log.Warn("handover locked after repeated failures")
			return nil, ErrTooManyAttempts
		}
	}

	if !codesMatch(o.VerificationCode, suppliedCode) {
		s.metrics.Inc(metrics.VerificationFailures)
		if s.limiter != nil {
			if n, err := s.limiter.RecordFailure(ctx, orderNumber); err != nil {
				log.Warn("failed to record verification failure", zap.Error(err))
			} else {
				log.Info("verification code mismatch", zap.Int64("failures", n))
			}
		}
		return nil, ErrInvalidVerificationCode
	}

	now := s.now()
	upd := StatusUpdate{
		OrderID:    o.ID,
		Expected:   StatusReadyForPickup,
		Next:       StatusOutForDelivery,
		PickupTime: &now,
		Actor:      actor,
		ChangedAt:  now,
	}
	if actor.Role == auth.RoleDeliveryPartner {
		upd.DeliveryPartnerID = &actor.ID
	}

	updated, err := s.apply(ctx, log, o, upd)
	if err != nil {
		return nil, err
	}

	s.metrics.Inc(metrics.Handovers)
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, orderNumber); err != nil {
			log.Warn("failed to reset attempt counter", zap.Error(err))
		}
	}
	return updated, nil
}

func (s *service) CancelOrder(ctx context.Context, orderNumber string, actor Actor) (*Order, error) {
	return s.AdvanceStatus(ctx, orderNumber, string(StatusCancelled), actor)
}

func (s *service) AssignDeliveryPartner(ctx context.Context, orderNumber string, partnerID uint, actor Actor) (*Order, error) {
	if actor.Role != auth.RoleRestaurant && actor.Role != auth.RoleAdmin {
		return nil, ErrForbidden
	}

	o, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	// Partners are attached no earlier than READY_FOR_PICKUP.
	allowed := []Status{StatusReadyForPickup, StatusOutForDelivery}
	if o.Status != StatusReadyForPickup && o.Status != StatusOutForDelivery {
		return nil, fmt.Errorf("%w: cannot assign a delivery partner while %s",
			ErrInvalidStatusTransition, o.Status)
	}

	updated, err := s.repo.SetDeliveryPartner(ctx, o.ID, partnerID, allowed)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.metrics.Inc(metrics.TransitionConflicts)
		}
		return nil, err
	}
	updated.Items = o.Items

	logger.FromCtx(ctx).Info("delivery partner assigned",
		zap.String("order_number", orderNumber),
		zap.Uint("delivery_partner_id", partnerID),
	)
	return updated, nil
}

func (s *service) History(ctx context.Context, orderNumber string, actor Actor) ([]StatusChange, error) {
	o, err := s.GetOrder(ctx, orderNumber, actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, o.ID)
}

func (s *service) apply(ctx context.Context, log *zap.Logger, o *Order, upd StatusUpdate) (*Order, error) {
	updated, err := s.repo.UpdateStatus(ctx, upd)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.metrics.Inc(metrics.TransitionConflicts)
			log.Warn("status changed underneath the request", zap.String("expected", string(upd.Expected)))
		} else {
			log.Error("failed to persist status", zap.Error(err))
		}
		return nil, err
	}
	updated.Items = o.Items

	s.metrics.Inc(metrics.StatusTransitions)
	log.Info("order status changed",
		zap.String("from", string(upd.Expected)),
		zap.String("to", string(updated.Status)),
	)

	s.notify(ctx, updated, upd.Expected)
	return updated, nil
}

func (s *service) notify(ctx context.Context, o *Order, from Status) {
	if s.notifier == nil {
		return
	}
	s.notifier.OrderStatusChanged(ctx, o, from)
}

func canView(actor Actor, o *Order) bool {
	if actor.Role == auth.RoleCustomer {
		return o.CustomerID == actor.ID
	}
	return actor.Role.Valid() || actor.Role == auth.RoleSystem
}

// codesMatch is an exact, case-sensitive, full-string comparison.
func codesMatch(stored, supplied string) bool {
	if stored == "" || len(stored) != len(supplied) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
