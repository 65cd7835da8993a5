package cart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"shopfront/models"
	"shopfront/services/api"
	"shopfront/services/auth"
)

// Validation errors reported before any network call.
var (
	ErrLoginToAdd     = errors.New("please log in to add items to cart")
	ErrLoginToUpdate  = errors.New("please log in to update cart")
	ErrLoginToRemove  = errors.New("please log in to remove items from cart")
	ErrLoginToClear   = errors.New("please log in to clear cart")
	ErrLoginToView    = errors.New("please log in to view cart")
	ErrQuantityTooLow = errors.New("quantity must be at least 1")
)

// sessionState is the slice of the session holder the cart depends on.
type sessionState interface {
	IsAuthenticated() bool
	Ready() bool
}

// Service mirrors the remote cart while the session is authenticated. Every
// mutating call replaces the whole in-memory snapshot with the server's
// response; responses are never merged locally, so whichever response lands
// last wins.
type Service struct {
	mu      sync.RWMutex
	cart    *models.Cart
	count   int
	lastErr error

	client  *api.Client
	session sessionState
	logger  *slog.Logger
}

// NewService creates the cart holder bound to a session.
func NewService(client *api.Client, session sessionState, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  client,
		session: session,
		logger:  logger,
	}
}

// HandleAuthChange reacts to session transitions: a freshly authenticated
// session triggers a full fetch, any other settled state resets the cart.
// While the session is still restoring nothing happens, which avoids a
// flash of stale or empty state. Register it with auth.Service.Subscribe.
func (s *Service) HandleAuthChange(state auth.State, _ *models.User) {
	switch state {
	case auth.StateAuthenticated:
		if err := s.Fetch(context.Background()); err != nil {
			s.logger.Warn("cart fetch after sign-in failed", "error", err)
		}
	case auth.StateUnauthenticated:
		s.Reset()
	}
}

// Cart returns a copy of the current snapshot, or nil when absent.
func (s *Service) Cart() *models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return nil
	}
	c := *s.cart
	c.Items = append([]models.CartItem(nil), s.cart.Items...)
	return &c
}

// Count returns the denormalized item count used for badge display.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Err returns the last recorded cart error, for UI display.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Reset drops the snapshot. Used on sign-out and loss of authentication;
// nothing of the cart is ever partially retained.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	s.count = 0
	s.lastErr = nil
}

// Fetch pulls the full cart. On success the snapshot is replaced
// atomically; on failure the snapshot is cleared and the error recorded, so
// a half-updated cart is never observable. A fetch while signed out just
// resets.
func (s *Service) Fetch(ctx context.Context) error {
	if !s.session.Ready() || !s.session.IsAuthenticated() {
		s.Reset()
		return nil
	}

	var cart models.Cart
	if err := s.client.Get(ctx, "/cart", &cart); err != nil {
		err = api.WithFallback(err, "failed to fetch cart")
		s.mu.Lock()
		s.cart = nil
		s.count = 0
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	s.apply(&cart)
	return nil
}

// FetchCount refreshes only the badge count with the lighter count
// endpoint. Failures are logged, not surfaced; the badge is not a critical
// path.
func (s *Service) FetchCount(ctx context.Context) {
	if !s.session.Ready() || !s.session.IsAuthenticated() {
		s.mu.Lock()
		s.count = 0
		s.mu.Unlock()
		return
	}

	env, err := s.client.DoEnvelope(ctx, http.MethodGet, "/cart/count", nil)
	if err != nil {
		s.logger.Warn("cart count fetch failed", "error", err)
		return
	}

	s.mu.Lock()
	s.count = env.Count
	s.mu.Unlock()
}

// Add puts quantity units of a product in the cart. A quantity below 1
// falls back to 1, matching the original single-unit default.
func (s *Service) Add(ctx context.Context, productID string, quantity int) error {
	if !s.session.IsAuthenticated() {
		return s.record(ErrLoginToAdd)
	}
	if quantity < 1 {
		quantity = 1
	}
	body := map[string]any{"productId": productID, "quantity": quantity}
	return s.mutate(func() (*models.Cart, error) {
		var cart models.Cart
		err := s.client.Post(ctx, "/cart/add", body, &cart)
		return &cart, api.WithFallback(err, "failed to add item to cart")
	})
}

// UpdateQuantity sets the quantity of a cart line. Values below 1 are
// rejected at the call site, before any network round-trip.
func (s *Service) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if !s.session.IsAuthenticated() {
		return s.record(ErrLoginToUpdate)
	}
	if quantity < 1 {
		return s.record(ErrQuantityTooLow)
	}
	body := map[string]any{"productId": productID, "quantity": quantity}
	return s.mutate(func() (*models.Cart, error) {
		var cart models.Cart
		err := s.client.Put(ctx, "/cart/update", body, &cart)
		return &cart, api.WithFallback(err, "failed to update cart item")
	})
}

// Remove deletes a cart line.
func (s *Service) Remove(ctx context.Context, productID string) error {
	if !s.session.IsAuthenticated() {
		return s.record(ErrLoginToRemove)
	}
	return s.mutate(func() (*models.Cart, error) {
		var cart models.Cart
		err := s.client.Delete(ctx, "/cart/remove/"+url.PathEscape(productID), &cart)
		return &cart, api.WithFallback(err, "failed to remove item from cart")
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) error {
	if !s.session.IsAuthenticated() {
		return s.record(ErrLoginToClear)
	}
	return s.mutate(func() (*models.Cart, error) {
		var cart models.Cart
		err := s.client.Delete(ctx, "/cart/clear", &cart)
		return &cart, api.WithFallback(err, "failed to clear cart")
	})
}

// Validate asks the server to re-check prices and stock; the returned cart
// replaces the snapshot like any other mutation.
func (s *Service) Validate(ctx context.Context) error {
	if !s.session.IsAuthenticated() {
		return s.record(ErrLoginToView)
	}
	return s.mutate(func() (*models.Cart, error) {
		var cart models.Cart
		err := s.client.Post(ctx, "/cart/validate", nil, &cart)
		return &cart, api.WithFallback(err, "failed to validate cart")
	})
}

// mutate runs one mutating call and applies the returned snapshot on
// success.
func (s *Service) mutate(call func() (*models.Cart, error)) error {
	cart, err := call()
	if err != nil {
		return s.record(err)
	}
	s.apply(cart)
	return nil
}

func (s *Service) apply(cart *models.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart
	s.count = 0
	if cart != nil {
		s.count = cart.TotalItems
	}
	s.lastErr = nil
}

func (s *Service) record(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	return err
}
