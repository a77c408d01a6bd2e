package fastspring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("user", "pass", zap.NewNop().Sugar(), WithBaseURL(srv.URL+"/"))
}

func TestClient_CreateAccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "user", u)
		require.Equal(t, "pass", p)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/accounts", r.URL.Path)

		var req AccountRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Ada", req.Contact.First)
		require.Equal(t, "ada@example.com", req.Contact.Email)

		_, _ = w.Write([]byte(`{"account":"acc-1","action":"account.create","result":"success"}`))
	})

	resp, err := c.CreateAccount(context.Background(), &AccountRequest{Contact: Contact{First: "Ada", Last: "Lovelace", Email: "ada@example.com"}})
	require.NoError(t, err)
	require.Equal(t, "acc-1", resp.Account)
}

func TestClient_ErrorCarriesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"action":"account.create","result":"error","error":{"email":"email is already used"}}`))
	})

	_, err := c.CreateAccount(context.Background(), &AccountRequest{})
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, http.StatusBadRequest, ce.StatusCode)
	require.True(t, ce.HasEmailError())
}

func TestClientError_HasEmailError(t *testing.T) {
	require.False(t, (&ClientError{Body: []byte(`{"error":{"country":"bad"}}`)}).HasEmailError())
	require.False(t, (&ClientError{Body: []byte(`not json`)}).HasEmailError())
	require.True(t, (&ClientError{Body: []byte(`{"error":{"email":"dup"}}`)}).HasEmailError())
}

func TestClient_GetAccountsAndManagementURI(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts":
			require.Equal(t, "ada@example.com", r.URL.Query().Get("email"))
			_, _ = w.Write([]byte(`{"accounts":[{"id":"acc-9"}]}`))
		case "/accounts/acc-9/authenticate":
			_, _ = w.Write([]byte(`{"accounts":[{"account":"acc-9","url":"https://example.onfastspring.com/account/x"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	accs, err := c.GetAccounts(context.Background(), map[string]string{"email": "ada@example.com"})
	require.NoError(t, err)
	require.Equal(t, "acc-9", accs.Accounts[0].ID)

	uri, err := c.GetAccountManagementURI(context.Background(), "acc-9")
	require.NoError(t, err)
	require.Equal(t, "https://example.onfastspring.com/account/x", uri.Accounts[0].URL)

	_, err = c.GetAccount(context.Background(), "missing")
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, http.StatusNotFound, ce.StatusCode)
}

func TestClient_CreateSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "acc-1", req["account"])
		require.NotContains(t, req, "coupon")
		_, _ = w.Write([]byte(`{"id":"sess-1","account":"acc-1","currency":"USD","items":[{"product":"pro","quantity":2}]}`))
	})

	s, err := c.CreateSession(context.Background(), &SessionRequest{
		Account: "acc-1",
		Items:   []SessionItem{{Product: "pro", Quantity: 2}},
		Tags:    map[string]string{"name": "default"},
	})
	require.NoError(t, err)
	require.Equal(t, "sess-1", s.ID)
	require.Equal(t, 2, s.Items[0].Quantity)
}
