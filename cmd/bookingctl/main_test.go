package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"localserve/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeService(t *testing.T, status string) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	amount := 500.0
	booking := models.Booking{ID: "42", ServiceName: "Plumbing", Status: status, ProviderAmount: &amount}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /bookings", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "list "+r.URL.RawQuery)
		_ = json.NewEncoder(w).Encode([]models.Booking{booking})
	})
	mux.HandleFunc("PATCH /bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "patch")
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	mux.HandleFunc("POST /bookings/{id}/note-form", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "note-form "+r.URL.RawQuery)
		b := booking
		b.Status = r.URL.Query().Get("status")
		_ = json.NewEncoder(w).Encode(b)
	})
	mux.HandleFunc("GET /bookings/{id}/order", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "order")
		_ = json.NewEncoder(w).Encode(models.PaymentOrder{OrderID: "order_1", Amount: 500, AmountMinor: 50000, Currency: "INR", KeyID: "rzp_test"})
	})
	mux.HandleFunc("POST /bookings/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		var res models.PaymentResult
		_ = json.NewDecoder(r.Body).Decode(&res)
		calls = append(calls, "verify "+res.PaymentID+" "+res.Signature)
		b := booking
		b.Status = models.StatusPaid
		_ = json.NewEncoder(w).Encode(models.BookingEnvelope{Booking: &b})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestListShowsActions(t *testing.T) {
	srv, calls := fakeService(t, models.StatusBooked)
	var out bytes.Buffer

	err := run([]string{"--api", srv.URL, "--role", "provider", "--party", "p1", "list"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Plumbing")
	assert.Contains(t, out.String(), "BOOKED")
	assert.Contains(t, out.String(), "accept, reject")
	assert.Equal(t, []string{"list providerId=p1"}, *calls)
}

func TestProgressFallsBackToNoteForm(t *testing.T) {
	srv, calls := fakeService(t, models.StatusAwaitingPayment)
	var out bytes.Buffer

	err := run([]string{"--api", srv.URL, "--role", "provider", "--party", "p1", "progress", "42"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Started booking 42")
	assert.Equal(t, []string{"list providerId=p1", "patch", "note-form status=IN_PROGRESS"}, *calls)
}

func TestAcceptRejectsBadAmountLocally(t *testing.T) {
	srv, calls := fakeService(t, models.StatusBooked)

	err := run([]string{"--api", srv.URL, "--role", "provider", "--party", "p1", "--amount", "-3", "accept", "42"},
		strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, []string{"list providerId=p1"}, *calls, "nothing but the listing is sent")
}

func TestPayReadsResultFromTerminal(t *testing.T) {
	srv, calls := fakeService(t, models.StatusAwaitingPayment)
	var out bytes.Buffer

	err := run([]string{"--api", srv.URL, "--role", "user", "--party", "u1", "pay", "42"},
		strings.NewReader("pay_1 sig_abc\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "500.00 INR")
	assert.Contains(t, *calls, "verify pay_1 sig_abc")
}

func TestPayDismissed(t *testing.T) {
	srv, calls := fakeService(t, models.StatusAwaitingPayment)

	err := run([]string{"--api", srv.URL, "--role", "user", "--party", "u1", "pay", "42"},
		strings.NewReader("\n"), &bytes.Buffer{})
	require.Error(t, err)
	for _, c := range *calls {
		assert.NotContains(t, c, "verify")
	}
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "500.00", formatMinor(50000))
	assert.Equal(t, "0.05", formatMinor(5))
	assert.Equal(t, "12.34", formatMinor(1234))
}

type countingTransport struct {
	calls int
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return c.next.RoundTrip(r)
}

func TestScriptLoaderUsesConfiguredClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
	}))
	t.Cleanup(srv.Close)
	transport := &countingTransport{next: http.DefaultTransport}

	require.NoError(t, scriptLoader(&http.Client{Transport: transport}, srv.URL).Load(context.Background()))
	assert.Equal(t, 1, transport.calls)

	require.NoError(t, scriptLoader(&http.Client{Transport: transport}, "").Load(context.Background()))
	assert.Equal(t, 1, transport.calls, "no script configured means no request")
}
