package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/internal/hub"
	"github.com/gatherly/gatherly/internal/models"
	"github.com/gatherly/gatherly/internal/server"
)

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql.DB: %v", err)
	}
	// A pooled second connection would get its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Event{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	srv := httptest.NewServer(server.NewRouter(db, hub.New()))
	t.Cleanup(srv.Close)
	return srv, db
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	decoded := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response of %s %s: %v", method, url, err)
	}
	return resp.StatusCode, decoded
}

func registerUser(t *testing.T, srv *httptest.Server, email, name string) (token, userID string) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/users/register", "", gin.H{
		"email":    email,
		"password": "secret123",
		"name":     name,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%v)", email, status, body)
	}

	token, _ = body["token"].(string)
	if token == "" {
		t.Fatalf("register %s: missing token in %v", email, body)
	}
	details, _ := body["userDetails"].(map[string]interface{})
	userID, _ = details["id"].(string)
	if userID == "" {
		t.Fatalf("register %s: missing userDetails.id in %v", email, body)
	}
	return token, userID
}

func createEvent(t *testing.T, srv *httptest.Server, token, title string, date time.Time) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/events", token, gin.H{
		"title":    title,
		"date":     date.Format(time.RFC3339),
		"location": "Town Hall",
		"category": "meetup",
	})
	if status != http.StatusCreated {
		t.Fatalf("create event %q: expected 201, got %d (%v)", title, status, body)
	}

	event, _ := body["event"].(map[string]interface{})
	id, _ := event["id"].(string)
	if id == "" {
		t.Fatalf("create event %q: missing event.id in %v", title, body)
	}
	return id
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readBroadcast(t *testing.T, conn *websocket.Conn) hub.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg hub.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}
	return msg
}

func expectNoBroadcast(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg hub.Message
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("expected no broadcast, received %+v", msg)
	}
}

func listEvents(t *testing.T, srv *httptest.Server, rawQuery string) []map[string]interface{} {
	t.Helper()

	url := srv.URL + "/api/events"
	if rawQuery != "" {
		url += "?" + rawQuery
	}
	status, body := doJSON(t, http.MethodGet, url, "", nil)
	if status != http.StatusOK {
		t.Fatalf("list events (%s): expected 200, got %d (%v)", rawQuery, status, body)
	}

	raw, _ := body["events"].([]interface{})
	events := make([]map[string]interface{}, len(raw))
	for i, e := range raw {
		events[i] = e.(map[string]interface{})
	}
	return events
}

func eventTitles(events []map[string]interface{}) []string {
	titles := make([]string, len(events))
	for i, e := range events {
		titles[i], _ = e["title"].(string)
	}
	return titles
}
