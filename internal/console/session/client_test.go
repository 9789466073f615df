package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// authTestServer mimics the emartd auth endpoints.
func authTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	requireMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("/api/auth/token/login", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var body loginBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case body.Username == "":
			w.WriteHeader(http.StatusBadRequest)
		case body.Username == "alice" && body.Password == "secret":
			w.Header().Set("Content-Type", "application/json")
			//nolint:errcheck // test handler
			json.NewEncoder(w).Encode(sessionEnvelope{
				Token: "jwt-token",
				User:  &User{ID: "usr-1", Username: "alice", Email: "alice@example.com", Role: "maker"},
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))

	mux.HandleFunc("/api/auth/token/signup", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch req.Username {
		case "":
			w.WriteHeader(http.StatusBadRequest)
		case "taken":
			w.WriteHeader(http.StatusConflict)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			//nolint:errcheck // test handler
			json.NewEncoder(w).Encode(sessionEnvelope{
				Token: "signup-token",
				User:  &User{ID: "usr-2", Username: req.Username, Email: req.Email, Role: "maker"},
			})
		}
	}))

	mux.HandleFunc("/api/auth/token/me", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		var user *User
		switch r.Header.Get("Authorization") {
		case "Bearer jwt-token":
			user = &User{ID: "usr-1", Username: "alice", Email: "alice@example.com", Role: "maker"}
		case "Bearer signup-token":
			user = &User{ID: "usr-2", Username: "bob", Email: "bob@example.com", Role: "maker"}
		default:
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // test handler
		json.NewEncoder(w).Encode(sessionEnvelope{User: user})
	}))

	mux.HandleFunc("/api/auth/token/logout", requireMethod(http.MethodPost, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_LoginSuccess(t *testing.T) {
	server := authTestServer(t)
	client := NewClient(server.URL, server.Client())

	user, err := client.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Role != "maker" {
		t.Errorf("role = %q, want maker", user.Role)
	}
	if client.Token() != "jwt-token" {
		t.Errorf("token = %q, want jwt-token", client.Token())
	}
}

func TestClient_LoginStatusMapping(t *testing.T) {
	server := authTestServer(t)
	client := NewClient(server.URL, server.Client())

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"wrong password", "alice", "wrong", ErrInvalidCredentials},
		{"missing username", "", "secret", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Login(context.Background(), tt.username, tt.password)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_SignupConflict(t *testing.T) {
	server := authTestServer(t)
	client := NewClient(server.URL, server.Client())

	_, err := client.Signup(context.Background(), SignupRequest{
		Username: "taken", Email: "taken@example.com", Password: "testpass123",
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestClient_SignupStoresToken(t *testing.T) {
	server := authTestServer(t)
	client := NewClient(server.URL, server.Client())

	user, err := client.Signup(context.Background(), SignupRequest{
		Username: "bob", Email: "bob@example.com", Password: "testpass123",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.ID != "usr-2" {
		t.Errorf("user.ID = %q, want usr-2", user.ID)
	}
	if client.Token() != "signup-token" {
		t.Errorf("token = %q, want signup-token", client.Token())
	}

	// The fresh session can probe itself without logging in again.
	me, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me after signup: %v", err)
	}
	if me.ID != "usr-2" {
		t.Errorf("me.ID = %q, want usr-2", me.ID)
	}
}

func TestClient_MeCarriesToken(t *testing.T) {
	server := authTestServer(t)
	client := NewClient(server.URL, server.Client())

	// Without a token, me is a 401 mapped to ErrSessionExpired
	if _, err := client.Me(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}

	if _, err := client.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.ID != "usr-1" {
		t.Errorf("user.ID = %q, want usr-1", user.ID)
	}
}

func TestClient_NetworkUnavailable(t *testing.T) {
	server := authTestServer(t)
	client := NewClient(server.URL, server.Client())
	server.Close() // nothing is listening any more

	_, err := client.Login(context.Background(), "alice", "secret")
	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Errorf("err = %v, want ErrNetworkUnavailable", err)
	}
}

func TestClient_LogoutDropsToken(t *testing.T) {
	server := authTestServer(t)
	client := NewClient(server.URL, server.Client())

	if _, err := client.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if client.Token() != "" {
		t.Errorf("token = %q, want empty after logout", client.Token())
	}
}
