package transport

import (
	"net/http"
	"testing"

	"stride/internal/checkout"
	"stride/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shippingForm() checkout.ShippingForm {
	return checkout.ShippingForm{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "5551234567",
		Address:   "12 Analytical Way",
		City:      "London",
		State:     "Greater London",
		ZipCode:   "12345",
		Country:   "United Kingdom",
	}
}

func paymentForm() checkout.PaymentForm {
	return checkout.PaymentForm{
		CardNumber: "4242 4242 4242 4242",
		CardName:   "Ada Lovelace",
		Expiry:     "12/29",
		CVV:        "123",
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, request{method: http.MethodGet, path: "/api/checkout", session: uuid.NewString()})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Your cart is empty", errorBody(t, rec).Message)
}

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	session := uuid.NewString()
	app.do(t, withSession(addToCart("13", 8, "Navy", 2), session))

	rec := app.do(t, request{method: http.MethodGet, path: "/api/checkout", session: session})
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody[CheckoutResponse](t, rec)
	assert.Equal(t, checkout.PhaseShipping, state.Phase)
	assert.Equal(t, "129.58", state.Cart.Summary.Total)

	rec = app.do(t, request{method: http.MethodPost, path: "/api/checkout/shipping", body: shippingForm(), session: session})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, checkout.PhasePayment, decodeBody[CheckoutResponse](t, rec).Phase)

	rec = app.do(t, request{method: http.MethodPost, path: "/api/checkout/back", session: session})
	require.Equal(t, http.StatusOK, rec.Code)
	state = decodeBody[CheckoutResponse](t, rec)
	assert.Equal(t, checkout.PhaseShipping, state.Phase)
	require.NotNil(t, state.Shipping)
	assert.Equal(t, "Ada", state.Shipping.FirstName)

	app.do(t, request{method: http.MethodPost, path: "/api/checkout/shipping", body: shippingForm(), session: session})
	rec = app.do(t, request{method: http.MethodPost, path: "/api/checkout/payment", body: paymentForm(), session: session})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	state = decodeBody[CheckoutResponse](t, rec)
	assert.Equal(t, checkout.PhaseConfirmation, state.Phase)
	assert.False(t, state.Processing)
	assert.Zero(t, state.Cart.Count)
	require.NotNil(t, state.Confirmation)
	assert.Regexp(t, `^STR-[0-9A-Z]+$`, state.Confirmation.OrderNumber)
	assert.Equal(t, "129.58", state.Confirmation.Summary.Total)
	assert.Len(t, state.Confirmation.Items, 1)
	assert.False(t, state.Confirmation.Persisted, "guest orders are not stored")

	rec = app.do(t, request{method: http.MethodGet, path: "/api/checkout", session: session})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.PhaseConfirmation, decodeBody[CheckoutResponse](t, rec).Phase)
}

func TestCheckoutValidation(t *testing.T) {
	app := newTestApp(t)
	session := uuid.NewString()
	app.do(t, withSession(addToCart("1", 9, "Red", 1), session))

	form := shippingForm()
	form.ZipCode = "12"
	rec := app.do(t, request{method: http.MethodPost, path: "/api/checkout/shipping", body: form, session: session})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Valid ZIP code required")

	rec = app.do(t, request{method: http.MethodPost, path: "/api/checkout/payment", body: paymentForm(), session: session})
	assert.Equal(t, http.StatusConflict, rec.Code)

	app.do(t, request{method: http.MethodPost, path: "/api/checkout/shipping", body: shippingForm(), session: session})
	payment := paymentForm()
	payment.Expiry = "13/29"
	rec = app.do(t, request{method: http.MethodPost, path: "/api/checkout/payment", body: payment, session: session})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Format: MM/YY")
}

func TestCheckoutPersistsSignedInOrders(t *testing.T) {
	app := newTestApp(t)
	session := uuid.NewString()
	user := app.seedUser(t, "Ada", "ada@example.com", domain.RoleUser)
	app.login(t, user.Email, session)

	app.do(t, withSession(addToCart("1", 9, "Red", 1), session))
	app.do(t, request{method: http.MethodPost, path: "/api/checkout/shipping", body: shippingForm(), session: session})
	rec := app.do(t, request{method: http.MethodPost, path: "/api/checkout/payment", body: paymentForm(), session: session})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	confirmation := decodeBody[CheckoutResponse](t, rec).Confirmation
	require.NotNil(t, confirmation)
	assert.True(t, confirmation.Persisted)

	orders, err := app.orders.ListByUser(t.Context(), user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, confirmation.OrderNumber, orders[0].OrderNumber)
	assert.Equal(t, domain.StatusProcessing, orders[0].Status)
}

func TestCheckoutReset(t *testing.T) {
	app := newTestApp(t)
	session := uuid.NewString()
	app.do(t, withSession(addToCart("1", 9, "Red", 1), session))
	app.do(t, request{method: http.MethodPost, path: "/api/checkout/shipping", body: shippingForm(), session: session})

	rec := app.do(t, request{method: http.MethodDelete, path: "/api/checkout", session: session})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, request{method: http.MethodGet, path: "/api/checkout", session: session})
	state := decodeBody[CheckoutResponse](t, rec)
	assert.Equal(t, checkout.PhaseShipping, state.Phase)
	assert.Nil(t, state.Shipping)
}

func TestCheckoutRateLimited(t *testing.T) {
	app := newTestApp(t)
	session := uuid.NewString()
	app.do(t, withSession(addToCart("1", 9, "Red", 1), session))

	for range 20 {
		rec := app.do(t, request{method: http.MethodPost, path: "/api/checkout/back", session: session})
		require.Equal(t, http.StatusConflict, rec.Code)
	}

	rec := app.do(t, request{method: http.MethodPost, path: "/api/checkout/back", session: session})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = app.do(t, request{method: http.MethodGet, path: "/api/checkout", session: session})
	assert.Equal(t, http.StatusOK, rec.Code, "reading checkout state is not limited")
}
