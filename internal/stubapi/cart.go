package stubapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"shopfront/models"
)

// cartFor returns the user's cart, creating an empty one on first use.
// Caller must hold s.mu.
func (s *Server) cartFor(email string) *models.Cart {
	cart, ok := s.carts[email]
	if !ok {
		now := time.Now().UTC().Format(time.RFC3339)
		cart = &models.Cart{
			ID:        uuid.NewString(),
			UserID:    email,
			Items:     []models.CartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.carts[email] = cart
	}
	return cart
}

// recalc rebuilds the cart aggregates from its lines.
func recalc(cart *models.Cart) {
	total := 0
	amount := 0.0
	for _, item := range cart.Items {
		total += item.Quantity
		amount += float64(item.Quantity) * item.Price
	}
	cart.TotalItems = total
	cart.TotalAmount = amount
	cart.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	s.mu.Lock()
	cart := *s.cartFor(email)
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, cart, nil)
}

func (s *Server) handleCartCount(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	s.mu.Lock()
	count := s.cartFor(email).TotalItems
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: &count})
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeBody(r, &body); err != nil || body.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if body.Quantity < 1 {
		body.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[body.ProductID]
	if !exists {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	cart := s.cartFor(email)
	found := false
	for i := range cart.Items {
		if cart.Items[i].Product.ID == body.ProductID {
			cart.Items[i].Quantity += body.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, models.CartItem{
			Product:  product,
			Quantity: body.Quantity,
			Price:    product.Price,
			AddedAt:  time.Now().UTC().Format(time.RFC3339),
		})
	}
	recalc(cart)
	writeSuccess(w, http.StatusOK, *cart, nil)
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeBody(r, &body); err != nil || body.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if body.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartFor(email)
	for i := range cart.Items {
		if cart.Items[i].Product.ID == body.ProductID {
			cart.Items[i].Quantity = body.Quantity
			recalc(cart)
			writeSuccess(w, http.StatusOK, *cart, nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Item not in cart")
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	productID := mux.Vars(r)["productId"]

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartFor(email)
	for i := range cart.Items {
		if cart.Items[i].Product.ID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			recalc(cart)
			writeSuccess(w, http.StatusOK, *cart, nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Item not in cart")
}

func (s *Server) handleCartValidate(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-price lines against the current catalog and drop vanished products.
	cart := s.cartFor(email)
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		product, exists := s.products[item.Product.ID]
		if !exists || !product.InStock {
			continue
		}
		item.Product = product
		item.Price = product.Price
		kept = append(kept, item)
	}
	cart.Items = kept
	recalc(cart)
	writeSuccess(w, http.StatusOK, *cart, nil)
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartFor(email)
	cart.Items = []models.CartItem{}
	recalc(cart)
	writeSuccess(w, http.StatusOK, *cart, nil)
}
