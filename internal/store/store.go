// Package store holds the per-session cart, wishlist, compare list and
// preferences. Mutations are synchronous and all-or-nothing; every mutation
// hands a snapshot of the changed scope to the registered change hooks, which
// is where persistence attaches.
package store

import (
	"errors"
	"slices"
	"sync"

	"stride/internal/domain"

	"github.com/shopspring/decimal"
)

// MaxCompare is the capacity of the compare list
const MaxCompare = 3

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Scope names an independently persisted part of the store
type Scope string

const (
	ScopeStore   Scope = "stride-store"
	ScopeCompare Scope = "stride-compare"
)

// State is the persisted shape of the store scope
type State struct {
	Cart            []domain.CartItem `json:"cart"`
	Wishlist        []domain.Product  `json:"wishlist"`
	User            *domain.Identity  `json:"user"`
	IsAuthenticated bool              `json:"isAuthenticated"`
	Theme           domain.Theme      `json:"theme"`
}

// CompareState is the persisted shape of the compare scope
type CompareState struct {
	CompareList []domain.Product `json:"compareList"`
}

// ChangeFunc receives the scope that changed and a copy of its state
// (State for ScopeStore, CompareState for ScopeCompare).
type ChangeFunc func(scope Scope, snapshot any)

// Store is the state container of one storefront session
type Store struct {
	mu       sync.Mutex
	state    State
	compare  CompareState
	onChange []ChangeFunc
}

// New creates an empty store with the light theme
func New() *Store {
	return Restore(State{}, CompareState{})
}

// Restore creates a store from previously persisted state
func Restore(state State, compare CompareState) *Store {
	if state.Theme != domain.ThemeDark {
		state.Theme = domain.ThemeLight
	}
	state.Cart = slices.DeleteFunc(state.Cart, func(item domain.CartItem) bool {
		return item.Quantity <= 0
	})
	if state.User == nil {
		state.IsAuthenticated = false
	}
	if len(compare.CompareList) > MaxCompare {
		compare.CompareList = compare.CompareList[:MaxCompare]
	}
	return &Store{state: state, compare: compare}
}

// OnChange registers a hook called after every mutation
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// AddToCart adds quantity units of a product variant, merging with an existing line
// that has the same product id, size and color.
func (s *Store) AddToCart(product domain.Product, size float64, color string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.LineKey{ProductID: product.ID, Size: size, Color: color}
	if i := s.indexOf(key); i >= 0 {
		s.state.Cart[i].Quantity += quantity
	} else {
		s.state.Cart = append(s.state.Cart, domain.CartItem{
			Product:  product,
			Quantity: quantity,
			Size:     size,
			Color:    color,
		})
	}

	s.changed(ScopeStore)
	return nil
}

// RemoveFromCart drops the matching line item; absent items are ignored
func (s *Store) RemoveFromCart(productID string, size float64, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLine(domain.LineKey{ProductID: productID, Size: size, Color: color})
	s.changed(ScopeStore)
}

// UpdateQuantity overwrites the quantity of the matching line; zero or less removes it
func (s *Store) UpdateQuantity(productID string, size float64, color string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.LineKey{ProductID: productID, Size: size, Color: color}
	if quantity <= 0 {
		s.removeLine(key)
	} else if i := s.indexOf(key); i >= 0 {
		s.state.Cart[i].Quantity = quantity
	}
	s.changed(ScopeStore)
}

// ClearCart empties the cart
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Cart = nil
	s.changed(ScopeStore)
}

// Deduct takes the given lines out of the cart. Each matching line loses the
// given quantity and is removed once nothing is left; other lines are kept.
func (s *Store) Deduct(items []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		i := s.indexOf(item.Key())
		if i < 0 {
			continue
		}
		if s.state.Cart[i].Quantity <= item.Quantity {
			s.removeLine(item.Key())
		} else {
			s.state.Cart[i].Quantity -= item.Quantity
		}
	}
	if len(s.state.Cart) == 0 {
		s.state.Cart = nil
	}
	s.changed(ScopeStore)
}

// Items returns a copy of the cart lines in insertion order
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Cart)
}

// CartTotal returns the sum of price times quantity
func (s *Store) CartTotal() decimal.Decimal {
	return CartTotal(s.Items())
}

// CartCount returns the total number of units in the cart
func (s *Store) CartCount() int {
	return CartCount(s.Items())
}

// AddToWishlist adds the product unless one with the same id is already saved
func (s *Store) AddToWishlist(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if containsProduct(s.state.Wishlist, product.ID) {
		return
	}
	s.state.Wishlist = append(s.state.Wishlist, product)
	s.changed(ScopeStore)
}

// RemoveFromWishlist removes the product with the given id
func (s *Store) RemoveFromWishlist(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Wishlist = removeProduct(s.state.Wishlist, productID)
	s.changed(ScopeStore)
}

// IsInWishlist reports whether the product id is saved
func (s *Store) IsInWishlist(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return containsProduct(s.state.Wishlist, productID)
}

// Wishlist returns the saved products
func (s *Store) Wishlist() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Wishlist)
}

// AddToCompare appends the product to the compare list. It reports false without
// changing anything when the list is full and the product is not already in it.
func (s *Store) AddToCompare(product domain.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if containsProduct(s.compare.CompareList, product.ID) {
		return true
	}
	if len(s.compare.CompareList) >= MaxCompare {
		return false
	}
	s.compare.CompareList = append(s.compare.CompareList, product)
	s.changed(ScopeCompare)
	return true
}

// RemoveFromCompare removes the product with the given id from the compare list
func (s *Store) RemoveFromCompare(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.compare.CompareList = removeProduct(s.compare.CompareList, productID)
	s.changed(ScopeCompare)
}

// ClearCompare empties the compare list
func (s *Store) ClearCompare() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.compare.CompareList = nil
	s.changed(ScopeCompare)
}

// IsInCompare reports whether the product id is being compared
func (s *Store) IsInCompare(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return containsProduct(s.compare.CompareList, productID)
}

// CompareList returns the compared products in insertion order
func (s *Store) CompareList() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.compare.CompareList)
}

// SetUser records the authenticated identity
func (s *Store) SetUser(user domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.User = &user
	s.state.IsAuthenticated = true
	s.changed(ScopeStore)
}

// ClearUser forgets the authenticated identity
func (s *Store) ClearUser() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.User = nil
	s.state.IsAuthenticated = false
	s.changed(ScopeStore)
}

// User returns the authenticated identity, if any
func (s *Store) User() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User == nil {
		return domain.Identity{}, false
	}
	return *s.state.User, true
}

// Theme returns the color scheme preference
func (s *Store) Theme() domain.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Theme
}

// SetTheme stores the color scheme preference; unknown values fall back to light
func (s *Store) SetTheme(theme domain.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if theme != domain.ThemeDark {
		theme = domain.ThemeLight
	}
	s.state.Theme = theme
	s.changed(ScopeStore)
}

// ToggleTheme switches between light and dark and returns the new theme
func (s *Store) ToggleTheme() domain.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Theme == domain.ThemeDark {
		s.state.Theme = domain.ThemeLight
	} else {
		s.state.Theme = domain.ThemeDark
	}
	s.changed(ScopeStore)
	return s.state.Theme
}

// Snapshot returns copies of both persisted scopes
func (s *Store) Snapshot() (State, CompareState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotState(), s.snapshotCompare()
}

func (s *Store) indexOf(key domain.LineKey) int {
	return slices.IndexFunc(s.state.Cart, func(item domain.CartItem) bool {
		return item.Key() == key
	})
}

func (s *Store) removeLine(key domain.LineKey) {
	s.state.Cart = slices.DeleteFunc(s.state.Cart, func(item domain.CartItem) bool {
		return item.Key() == key
	})
}

func (s *Store) snapshotState() State {
	state := s.state
	state.Cart = slices.Clone(s.state.Cart)
	state.Wishlist = slices.Clone(s.state.Wishlist)
	if s.state.User != nil {
		user := *s.state.User
		state.User = &user
	}
	return state
}

func (s *Store) snapshotCompare() CompareState {
	return CompareState{CompareList: slices.Clone(s.compare.CompareList)}
}

// changed runs the hooks with the mutation lock held so snapshots are delivered in mutation order
func (s *Store) changed(scope Scope) {
	if len(s.onChange) == 0 {
		return
	}

	var snapshot any
	switch scope {
	case ScopeCompare:
		snapshot = s.snapshotCompare()
	default:
		snapshot = s.snapshotState()
	}

	for _, fn := range s.onChange {
		fn(scope, snapshot)
	}
}

func containsProduct(products []domain.Product, id string) bool {
	return slices.ContainsFunc(products, func(p domain.Product) bool { return p.ID == id })
}

func removeProduct(products []domain.Product, id string) []domain.Product {
	return slices.DeleteFunc(products, func(p domain.Product) bool { return p.ID == id })
}
