package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetActiveMatchesHandler(t *testing.T) {
	env := newTestEnv(t)
	active := env.createMatch(t)
	over := env.createMatch(t)
	if rr := env.do(t, "POST", "/api/matches/"+over+"/resign", ResignRequest{Color: "black"}); rr.Code != http.StatusOK {
		t.Fatalf("Resign failed: %d %s", rr.Code, rr.Body.String())
	}

	req, err := http.NewRequest("GET", "/api/spectate", nil)
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	http.HandlerFunc(env.service.GetActiveMatchesHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status 200, got %v", status)
	}

	var response struct {
		Matches []MatchIndex `json:"matches"`
		Total   int          `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Total != 1 || len(response.Matches) != 1 {
		t.Fatalf("Expected one active match, got %+v", response)
	}
	if response.Matches[0].MatchID != active {
		t.Errorf("Expected match %s, got %s", active, response.Matches[0].MatchID)
	}
	if response.Matches[0].MaterialCount.White != 39 {
		t.Errorf("Expected full white material, got %d", response.Matches[0].MaterialCount.White)
	}
}

func TestGetSpectatorMatchHandler(t *testing.T) {
	env := newTestEnv(t)
	id := env.createMatch(t)
	for _, mv := range [][2]string{{"e2", "e4"}, {"d7", "d5"}, {"e4", "d5"}} {
		if rr := env.move(t, id, mv[0], mv[1]); rr.Code != http.StatusOK {
			t.Fatalf("Move %v failed: %d", mv, rr.Code)
		}
	}

	req, err := http.NewRequest("GET", "/api/spectate/"+id, nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"id": id})

	rr := httptest.NewRecorder()
	http.HandlerFunc(env.service.GetSpectatorMatchHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("Expected status 200, got %v", status)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if _, ok := response["match"]; !ok {
		t.Error("Response missing 'match' field")
	}
	if balance := response["balance"]; balance != float64(1) {
		t.Errorf("Expected white to be a pawn up, got %v", balance)
	}
	if count := response["spectatorCount"]; count != float64(0) {
		t.Errorf("Expected no spectators, got %v", count)
	}
}

func TestGetSpectatorMatchHandlerNotFound(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest("GET", "/api/spectate/missing", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(env.service.GetSpectatorMatchHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %v", status)
	}
}
