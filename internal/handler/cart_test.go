package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func createBuildWithParts(t *testing.T, env *testEnv, tok string) string {
	t.Helper()
	body := `{
		"name":"Starter Rig",
		"components":{
			"cpu":{"name":"Ryzen 5 7600","price":229,"category":"cpu"},
			"gpu":{"name":"RX 7800 XT","price":499,"category":"graphics-card"}
		}
	}`
	w := doJSON(t, env, http.MethodPost, "/builds", body, tok)
	if w.Code != http.StatusCreated {
		t.Fatalf("create build: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decodeBody(t, w)["build"].(map[string]any)["id"].(string)
}

func TestAddBuildToCart_200_snapshots(t *testing.T) {
	env := newTestEnv()
	tok := env.tokenFor(uuid.New(), "amy@example.com", "amy")
	buildID := createBuildWithParts(t, env, tok)

	w := doJSON(t, env, http.MethodPost, "/cart/add-build",
		fmt.Sprintf(`{"buildId":%q}`, buildID), tok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	items := resp["cart"].(map[string]any)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(items))
	}
	item := items[0].(map[string]any)
	if item["totalPrice"].(float64) != 728 {
		t.Errorf("expected snapshot total 728, got %v", item["totalPrice"])
	}
	if item["buildName"] != "Starter Rig" {
		t.Errorf("expected build name on line item, got %v", item["buildName"])
	}
}

func TestAddBuildToCart_nameOverride(t *testing.T) {
	env := newTestEnv()
	tok := env.tokenFor(uuid.New(), "amy@example.com", "amy")
	buildID := createBuildWithParts(t, env, tok)

	w := doJSON(t, env, http.MethodPost, "/cart/add-build",
		fmt.Sprintf(`{"buildId":%q,"name":"Gift Build"}`, buildID), tok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	item := resp["cart"].(map[string]any)["items"].([]any)[0].(map[string]any)
	if item["buildName"] != "Gift Build" {
		t.Errorf("expected name override, got %v", item["buildName"])
	}
}

func TestAddBuildToCart_400_duplicate(t *testing.T) {
	env := newTestEnv()
	tok := env.tokenFor(uuid.New(), "amy@example.com", "amy")
	buildID := createBuildWithParts(t, env, tok)

	body := fmt.Sprintf(`{"buildId":%q}`, buildID)
	doJSON(t, env, http.MethodPost, "/cart/add-build", body, tok)
	w := doJSON(t, env, http.MethodPost, "/cart/add-build", body, tok)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAddBuildToCart_400_emptyBuild(t *testing.T) {
	env := newTestEnv()
	tok := env.tokenFor(uuid.New(), "amy@example.com", "amy")

	w := doJSON(t, env, http.MethodPost, "/builds", `{"name":"Empty Rig"}`, tok)
	buildID := decodeBody(t, w)["build"].(map[string]any)["id"].(string)

	w = doJSON(t, env, http.MethodPost, "/cart/add-build",
		fmt.Sprintf(`{"buildId":%q}`, buildID), tok)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty build, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAddBuildToCart_404_unknownBuild(t *testing.T) {
	env := newTestEnv()
	tok := env.tokenFor(uuid.New(), "amy@example.com", "amy")

	w := doJSON(t, env, http.MethodPost, "/cart/add-build",
		fmt.Sprintf(`{"buildId":%q}`, uuid.New().String()), tok)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetCart_404_beforeFirstAdd(t *testing.T) {
	env := newTestEnv()
	tok := env.tokenFor(uuid.New(), "amy@example.com", "amy")

	w := doJSON(t, env, http.MethodGet, "/cart", "", tok)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRemoveItem_idempotent(t *testing.T) {
	env := newTestEnv()
	tok := env.tokenFor(uuid.New(), "amy@example.com", "amy")
	buildID := createBuildWithParts(t, env, tok)

	doJSON(t, env, http.MethodPost, "/cart/add-build",
		fmt.Sprintf(`{"buildId":%q}`, buildID), tok)

	body := fmt.Sprintf(`{"buildId":%q}`, buildID)
	w := doJSON(t, env, http.MethodDelete, "/cart/remove-item", body, tok)
	if w.Code != http.StatusOK {
		t.Fatalf("first remove: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Removing an item that is already gone succeeds.
	w = doJSON(t, env, http.MethodDelete, "/cart/remove-item", body, tok)
	if w.Code != http.StatusOK {
		t.Fatalf("second remove: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	if items := resp["cart"].(map[string]any)["items"].([]any); len(items) != 0 {
		t.Errorf("expected empty cart, got %d items", len(items))
	}
}

func TestCart_401_noToken(t *testing.T) {
	env := newTestEnv()

	w := doJSON(t, env, http.MethodGet, "/cart", "", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
