package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"taller-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNombrePorDNI_Success(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"nombre_completo":"Luis Pérez"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	nombre, err := client.NombrePorDNI(context.Background(), "87654321")

	require.NoError(t, err)
	assert.Equal(t, "Luis Pérez", nombre)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "/v1/dni/info/87654321", gotPath)
}

func TestNombrePorDNI_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	_, err := client.NombrePorDNI(context.Background(), "12345678")

	var lookupErr *models.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "12345678", lookupErr.DNI)
}

func TestNombrePorDNI_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	_, err := client.NombrePorDNI(context.Background(), "12345678")

	var lookupErr *models.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Contains(t, lookupErr.Reason, "500")
}

func TestNombrePorDNI_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "test-token")
	_, err := client.NombrePorDNI(context.Background(), "12345678")

	var lookupErr *models.LookupError
	require.ErrorAs(t, err, &lookupErr)
}
