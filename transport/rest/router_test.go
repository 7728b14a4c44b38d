package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"support-chat/auth"
	"support-chat/domain"
	"support-chat/repositories"
)

var testSecret = []byte("history_endpoint_test_secret")

func newTestAPI(t *testing.T) (*API, repositories.MessageRepository, auth.Resolver) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repository := repositories.NewMessageRepository(db, slog.Default(), nil)
	resolver := auth.NewResolver(testSecret)
	return NewAPI(slog.Default(), repository, resolver), repository, resolver
}

func seedMessage(t *testing.T, repository repositories.MessageRepository, customerID, body string) {
	t.Helper()
	require.NoError(t, repository.StoreMessage(repositories.StoredMessage{
		ID:          uuid.New(),
		CustomerID:  customerID,
		SenderID:    customerID,
		SenderRole:  domain.RoleCustomer,
		RecipientID: "a1",
		Body:        body,
		At:          time.Now().UTC(),
	}))
}

func getHistory(t *testing.T, api *API, resolver auth.Resolver, p domain.Participant, customerID string) *httptest.ResponseRecorder {
	t.Helper()
	router := api.Router(http.NotFoundHandler(), prometheus.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/messages/"+customerID, nil)
	if p.ID != "" {
		token, err := resolver.GenerateToken(p, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHistory_RequiresToken(t *testing.T) {
	api, _, resolver := newTestAPI(t)
	rec := getHistory(t, api, resolver, domain.Participant{}, "42")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistory_CustomerReadsOwnThread(t *testing.T) {
	req := require.New(t)
	api, repository, resolver := newTestAPI(t)
	seedMessage(t, repository, "42", "where is my order")

	rec := getHistory(t, api, resolver,
		domain.Participant{ID: "42", DisplayName: "Alice", Role: domain.RoleCustomer}, "42")
	req.Equal(http.StatusOK, rec.Code)

	var resp historyResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Equal("42", resp.CustomerID)
	req.Len(resp.Messages, 1)
	req.Equal("where is my order", resp.Messages[0].Body)
}

func TestHistory_CustomerCannotReadOtherThread(t *testing.T) {
	api, repository, resolver := newTestAPI(t)
	seedMessage(t, repository, "7", "private")

	rec := getHistory(t, api, resolver,
		domain.Participant{ID: "42", Role: domain.RoleCustomer}, "7")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHistory_AdminReadsAnyThread(t *testing.T) {
	req := require.New(t)
	api, repository, resolver := newTestAPI(t)
	seedMessage(t, repository, "7", "private")

	rec := getHistory(t, api, resolver,
		domain.Participant{ID: "a1", DisplayName: "Op", Role: domain.RoleAdmin}, "7")
	req.Equal(http.StatusOK, rec.Code)

	var resp historyResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Len(resp.Messages, 1)
}

func TestHistory_EmptyThreadIsEmptyList(t *testing.T) {
	req := require.New(t)
	api, _, resolver := newTestAPI(t)

	rec := getHistory(t, api, resolver,
		domain.Participant{ID: "a1", Role: domain.RoleAdmin}, "42")
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`{"customer_id":"42","messages":[]}`, rec.Body.String())
}
