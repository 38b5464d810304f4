package shared

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCSRFManagerBindsTokenToClient(t *testing.T) {
	m := NewCSRFManager("secret")
	token := m.Token("client-a")

	require.NoError(t, m.Verify("client-a", token))
	require.ErrorIs(t, m.Verify("client-b", token), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.Verify("client-a", ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, m.Verify("", token), ErrCSRFTokenMissing)
	require.NotEqual(t, token, NewCSRFManager("other").Token("client-a"))
}

func TestClientManagerIdentify(t *testing.T) {
	m := NewClientManager("sd_client", time.Hour, true)

	rec := httptest.NewRecorder()
	id := m.Identify(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, id, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sd_client", Value: id})
	require.Equal(t, id, m.Identify(httptest.NewRecorder(), req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sd_client", Value: "not-a-uuid"})
	require.NotEqual(t, "not-a-uuid", m.Identify(httptest.NewRecorder(), req))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 41)
	require.Equal(t, 5, p.TotalPages)
	require.Equal(t, 20, p.Offset())

	p = NewPagination(-1, 0, 0)
	require.Equal(t, Pagination{Page: 0, PerPage: 10}, p)

	p = NewPagination(math.MaxInt, 10, 5)
	require.Equal(t, 0, p.Page)
	require.Equal(t, 0, p.Offset())
}

func TestClientContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, ClientFromContext(req.Context()))
	require.Equal(t, "c1", ClientFromContext(ContextWithClient(req.Context(), "c1")))
}
