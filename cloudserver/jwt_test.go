// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package cloudserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bizledger/possync/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	j := NewJWTAuth("test-secret")

	token, err := j.GenerateToken("tenant-1", "device-a", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "tenant-1", claims.Subject)
	require.Equal(t, "device-a", claims.DeviceID)
	require.Equal(t, "possync", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	j := NewJWTAuth("test-secret")
	token, err := j.GenerateToken("tenant-1", "device-a", time.Hour)
	require.NoError(t, err)

	other := NewJWTAuth("different-secret")
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	j := NewJWTAuth("test-secret")
	token, err := j.GenerateToken("tenant-1", "device-a", -time.Minute)
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenMissingTenant(t *testing.T) {
	j := NewJWTAuth("test-secret")
	token, err := j.GenerateToken("", "device-a", time.Hour)
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sub")
}

func TestMiddlewareSetsTenantAndDevice(t *testing.T) {
	j := NewJWTAuth("test-secret")
	token, err := j.GenerateToken("tenant-1", "device-a", time.Hour)
	require.NoError(t, err)

	var got auth.Identity
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/collections/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, auth.Identity{TenantID: "tenant-1", DeviceID: "device-a"}, got)
}

func TestMiddlewareRejectsBadRequests(t *testing.T) {
	j := NewJWTAuth("test-secret")
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	// No Authorization header.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Not a bearer token.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
