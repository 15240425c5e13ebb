package card

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"Chlothzy/internal/cart"
	"Chlothzy/internal/catalog"
	"Chlothzy/internal/flow"
	"Chlothzy/internal/storage"
	"Chlothzy/pkg/kit"
)

const readyTimeout = 1 * time.Second

type Server struct {
	Sessions *Sessions
	Catalog  catalog.Store
	KV       storage.Store
	Tokens   *TokenMaker
	TokenTTL time.Duration
	Log      *zap.Logger
}

type productReq struct {
	ProductID string `json:"product_id"`
}

type themeReq struct {
	Dark *bool `json:"dark"`
}

type sizeReq struct {
	Size      string `json:"size"`
	ProductID string `json:"product_id,omitempty"`
}

type sessionResp struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type cartResp struct {
	Lines          []cart.Line `json:"lines"`
	TotalItems     int         `json:"total_items"`
	TotalPrice     string      `json:"total_price"`
	TotalValue     float64     `json:"total_value"`
	Summary        []string    `json:"summary"`
	LastCartUpdate string      `json:"last_cart_update,omitempty"`
}

type cardResp struct {
	Product catalog.Product       `json:"product"`
	Cart    cartResp              `json:"cart"`
	Prefs   cart.Preferences      `json:"prefs"`
	Flows   map[string]flow.State `json:"flows"`
}

type wishlistResp struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

type purchaseResp struct {
	Status  string `json:"status"`
	Product string `json:"product"`
	Price   string `json:"price"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.KV.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed: storage", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "storage not ready", nil)
		return
	}
	if err := s.Catalog.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed: catalog", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()

	tok, exp, err := s.Tokens.New(id, s.TokenTTL)
	if err != nil {
		s.Log.Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Sessions.Get(r.Context(), id)
	kit.WriteJSON(w, http.StatusCreated, sessionResp{Token: tok, SessionID: id, ExpiresAt: exp})
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	id, _ := SessionIDFromContext(r.Context())
	if err := s.Sessions.Forget(id); errors.Is(err, ErrSessionBusy) {
		kit.WriteError(w, r, http.StatusConflict, "session has an action in progress", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getCard(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	pid := r.URL.Query().Get("product_id")
	if pid == "" {
		pid = catalog.DefaultProduct.ID
	}
	p, ok := s.lookupProduct(w, r, pid)
	if !ok {
		return
	}

	kit.WriteJSON(w, http.StatusOK, cardResp{
		Product: p,
		Cart:    cartView(sess.Cart),
		Prefs:   sess.Cart.Preferences(),
		Flows: map[string]flow.State{
			sess.AddToCart.Name: sess.AddToCart.State(),
			sess.BuyNow.Name:    sess.BuyNow.State(),
		},
	})
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, cartView(s.session(r).Cart))
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	p, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}

	// The live store is resolved when the delay ends, not when the click lands.
	done, err := sess.AddToCart.Start(func(ctx context.Context) error {
		return s.Sessions.Get(ctx, sess.ID).Cart.AddItem(ctx, p.Name, p.Price, p.Image)
	})
	if errors.Is(err, flow.ErrBusy) {
		kit.WriteError(w, r, http.StatusConflict, "add to cart already in progress", nil)
		return
	}

	if !s.await(w, r, done, "error adding to cart, please try again") {
		return
	}
	kit.WriteJSON(w, http.StatusOK, cartView(s.Sessions.Get(r.Context(), sess.ID).Cart))
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "bad item name", nil)
		return
	}

	if err := sess.Cart.RemoveItem(r.Context(), name); err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, cartView(sess.Cart))
}

func (s *Server) buyNow(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	p, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}

	log := s.Log.With(zap.String("session_id", sess.ID))
	done, err := sess.BuyNow.Start(func(context.Context) error {
		log.Info("buying", zap.String("product", p.Name), zap.String("price", p.Price))
		return nil
	})
	if errors.Is(err, flow.ErrBusy) {
		kit.WriteError(w, r, http.StatusConflict, "purchase already in progress", nil)
		return
	}

	if !s.await(w, r, done, "error processing purchase, please try again") {
		return
	}
	kit.WriteJSON(w, http.StatusOK, purchaseResp{Status: "purchased", Product: p.Name, Price: p.Price})
}

func (s *Server) setTheme(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	var req themeReq
	if err := kit.DecodeJSON(w, r, &req); err != nil || req.Dark == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	if err := sess.Cart.SetTheme(r.Context(), *req.Dark); err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, sess.Cart.Preferences())
}

func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	if _, err := sess.Cart.ToggleTheme(r.Context()); err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, sess.Cart.Preferences())
}

func (s *Server) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	if _, err := sess.Cart.ToggleWishlist(r.Context()); err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, sess.Cart.Preferences())
}

func (s *Server) setSize(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	var req sizeReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	req.Size = strings.TrimSpace(req.Size)
	if req.Size == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "size required", nil)
		return
	}

	if req.ProductID != "" {
		p, ok := s.lookupProduct(w, r, req.ProductID)
		if !ok {
			return
		}
		if !p.HasSize(req.Size) {
			kit.WriteError(w, r, http.StatusBadRequest, catalog.ErrUnknownSize.Error(), map[string]any{"sizes": p.Sizes})
			return
		}
	}

	if err := sess.Cart.SetSelectedSize(r.Context(), req.Size); err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, sess.Cart.Preferences())
}

// getWishlist counts wishlisted cards. The flag is page-wide, so the count is
// zero or one.
func (s *Server) getWishlist(w http.ResponseWriter, r *http.Request) {
	resp := wishlistResp{Message: "Your wishlist is empty"}
	if s.session(r).Cart.Preferences().Wishlisted {
		resp = wishlistResp{Count: 1, Message: "You have 1 item in your wishlist"}
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) session(r *http.Request) *Session {
	id, _ := SessionIDFromContext(r.Context())
	return s.Sessions.Get(r.Context(), id)
}

func (s *Server) decodeProduct(w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	var req productReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return catalog.Product{}, false
	}
	if strings.TrimSpace(req.ProductID) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "product_id required", nil)
		return catalog.Product{}, false
	}
	return s.lookupProduct(w, r, strings.TrimSpace(req.ProductID))
}

func (s *Server) lookupProduct(w http.ResponseWriter, r *http.Request, id string) (catalog.Product, bool) {
	p, found, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("catalog lookup failed", zap.Error(err), zap.String("product_id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return catalog.Product{}, false
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "product not found", map[string]any{"id": id})
		return catalog.Product{}, false
	}
	return p, true
}

// await blocks until the flow resolves or the client goes away. The flow
// itself always runs to completion.
func (s *Server) await(w http.ResponseWriter, r *http.Request, done <-chan error, failMsg string) bool {
	select {
	case err := <-done:
		if err != nil {
			kit.WriteError(w, r, http.StatusInternalServerError, failMsg, nil)
			return false
		}
		return true
	case <-r.Context().Done():
		return false
	}
}

func cartView(c *cart.Store) cartResp {
	snap := c.Snapshot()
	return cartResp{
		Lines:          snap.Lines,
		TotalItems:     snap.TotalItems,
		TotalPrice:     cart.FormatPrice(snap.TotalPrice),
		TotalValue:     snap.TotalPrice,
		Summary:        c.Summary(),
		LastCartUpdate: snap.LastCartUpdate,
	}
}
