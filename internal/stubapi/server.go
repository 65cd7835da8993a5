package stubapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"shopfront/models"
)

// FixedOTP is the one-time code the stub accepts for every flow.
const FixedOTP = "123456"

// Server is an in-memory double of the storefront API, used by tests and by
// the shopfront-stub command for development against no backend. It is not
// the real server and implements only the envelope contract the client
// consumes.
type Server struct {
	mu            sync.Mutex
	router        *mux.Router
	products      map[string]models.Product
	productOrder  []string
	users         map[string]*models.User // keyed by email
	pendingCodes  map[string]string       // email -> expected code
	accessTokens  map[string]string       // access token -> email
	refreshTokens map[string]string       // refresh token -> email
	carts         map[string]*models.Cart // keyed by email
}

// NewServer creates an empty stub. Seed products with SeedProducts.
func NewServer() *Server {
	s := &Server{
		products:      make(map[string]models.Product),
		users:         make(map[string]*models.User),
		pendingCodes:  make(map[string]string),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		carts:         make(map[string]*models.Cart),
	}
	s.router = s.routes()
	return s
}

// Handler returns the stub's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SeedProducts loads catalog fixtures, assigning ids to entries without one.
func (s *Server) SeedProducts(products []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, exists := s.products[p.ID]; !exists {
			s.productOrder = append(s.productOrder, p.ID)
		}
		s.products[p.ID] = p
	}
}

// ExpireToken invalidates an access token so the next authenticated request
// 401s. Tests use this to drive the refresh path.
func (s *Server) ExpireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accessTokens, token)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, nil, nil)
	}).Methods(http.MethodGet)

	r.HandleFunc("/auth/signup/send-otp", s.handleSendOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/login/send-otp", s.handleSendOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/resend-otp", s.handleResendOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/signup/verify-otp", s.handleVerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/login/verify-otp", s.handleVerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh-token", s.handleRefreshToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/profile", s.handleGetProfile).Methods(http.MethodGet)
	r.HandleFunc("/auth/profile", s.handleUpdateProfile).Methods(http.MethodPut)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/auth/deactivate", s.handleDeactivate).Methods(http.MethodDelete)

	r.HandleFunc("/products", s.handleListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/search", s.handleSearchProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/featured", s.handleFeaturedProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/category/{category}", s.handleProductsByCategory).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", s.handleGetProduct).Methods(http.MethodGet)

	r.HandleFunc("/cart", s.handleGetCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/count", s.handleCartCount).Methods(http.MethodGet)
	r.HandleFunc("/cart/add", s.handleCartAdd).Methods(http.MethodPost)
	r.HandleFunc("/cart/update", s.handleCartUpdate).Methods(http.MethodPut)
	r.HandleFunc("/cart/validate", s.handleCartValidate).Methods(http.MethodPost)
	r.HandleFunc("/cart/remove/{productId}", s.handleCartRemove).Methods(http.MethodDelete)
	r.HandleFunc("/cart/clear", s.handleCartClear).Methods(http.MethodDelete)

	return r
}

type envelope struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message,omitempty"`
	Data        any                `json:"data,omitempty"`
	AccessToken string             `json:"accessToken,omitempty"`
	Count       *int               `json:"count,omitempty"`
	Meta        *models.Pagination `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *models.Pagination) {
	writeJSON(w, status, envelope{Success: true, Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// authedEmail resolves the bearer token to a signed-in user's email.
func (s *Server) authedEmail(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.accessTokens[token]
	return email, ok
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	s.mu.Lock()
	s.pendingCodes[body.Email] = FixedOTP
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, nil, nil)
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Type  string `json:"type"`
	}
	if err := decodeBody(r, &body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if body.Type != "signup" && body.Type != "login" {
		writeError(w, http.StatusBadRequest, "unknown OTP type")
		return
	}
	s.mu.Lock()
	s.pendingCodes[body.Email] = FixedOTP
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, nil, nil)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decodeBody(r, &body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expected, ok := s.pendingCodes[body.Email]
	if !ok || body.OTP != expected {
		writeError(w, http.StatusUnauthorized, "Invalid or expired OTP")
		return
	}
	delete(s.pendingCodes, body.Email)

	user, ok := s.users[body.Email]
	if !ok {
		now := time.Now().UTC().Format(time.RFC3339)
		user = &models.User{
			ID:        uuid.NewString(),
			Email:     body.Email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.users[body.Email] = user
	}

	access := uuid.NewString()
	refresh := uuid.NewString()
	s.accessTokens[access] = body.Email
	s.refreshTokens[refresh] = body.Email

	writeSuccess(w, http.StatusOK, map[string]any{
		"tokens": models.TokenPair{AccessToken: access, RefreshToken: refresh},
		"user":   user,
	}, nil)
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.refreshTokens[body.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	access := uuid.NewString()
	s.accessTokens[access] = email
	writeJSON(w, http.StatusOK, envelope{Success: true, AccessToken: access})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	s.mu.Lock()
	user := s.users[email]
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, map[string]any{"user": user}, nil)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	fields := map[string]string{}
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				fields[key] = vals[0]
			}
		}
	} else {
		var body map[string]any
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed body")
			return
		}
		for key, val := range body {
			if str, isStr := val.(string); isStr {
				fields[key] = str
			}
		}
	}

	s.mu.Lock()
	user := s.users[email]
	if name, ok := fields["fullName"]; ok {
		user.FullName = name
	}
	if user.Profile == nil {
		user.Profile = &models.Profile{}
	}
	if v, ok := fields["firstName"]; ok {
		user.Profile.FirstName = v
	}
	if v, ok := fields["lastName"]; ok {
		user.Profile.LastName = v
	}
	if v, ok := fields["phoneNumber"]; ok {
		user.Profile.PhoneNumber = v
	}
	if v, ok := fields["address"]; ok {
		user.Profile.Address = v
	}
	if r.MultipartForm != nil && len(r.MultipartForm.File["avatar"]) > 0 {
		user.Profile.Avatar = "/uploads/" + uuid.NewString()
	}
	user.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.mu.Unlock()

	writeSuccess(w, http.StatusOK, map[string]any{"user": user}, nil)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if email, ok := s.authedEmail(r); ok {
		s.mu.Lock()
		for token, e := range s.accessTokens {
			if e == email {
				delete(s.accessTokens, token)
			}
		}
		for token, e := range s.refreshTokens {
			if e == email {
				delete(s.refreshTokens, token)
			}
		}
		s.mu.Unlock()
	}
	writeSuccess(w, http.StatusOK, nil, nil)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	email, ok := s.authedEmail(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	s.mu.Lock()
	delete(s.users, email)
	delete(s.carts, email)
	for token, e := range s.accessTokens {
		if e == email {
			delete(s.accessTokens, token)
		}
	}
	for token, e := range s.refreshTokens {
		if e == email {
			delete(s.refreshTokens, token)
		}
	}
	s.mu.Unlock()
	writeSuccess(w, http.StatusOK, nil, nil)
}
