//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) < 7 {
		t.Fatalf("expected at least 7 products, got %d", len(products))
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/espresso", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.Name != "Espresso" {
		t.Errorf("name: got %q, want Espresso", p.Name)
	}
	if p.Price != 2.5 {
		t.Errorf("price: got %v, want 2.5", p.Price)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error code: got %d, want 404", body.Code)
	}
}

func TestProductLifecycle(t *testing.T) {
	// Create.
	resp := doPost(t, "/api/products", "", map[string]any{
		"name":        "Affogato",
		"price":       5.20,
		"stock":       30,
		"description": "Espresso over vanilla gelato",
	})
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[productResponse](t, resp)
	resp.Body.Close()

	if created.ID == "" {
		t.Fatal("create: empty product ID")
	}

	// Update.
	resp = do(t, http.MethodPut, "/api/products/"+created.ID, "", map[string]any{
		"name":  "Affogato",
		"price": 5.50,
		"stock": 25,
	})
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if stock := productStock(t, created.ID); stock != 25 {
		t.Errorf("stock after update: got %d, want 25", stock)
	}

	// Delete.
	resp = do(t, http.MethodDelete, "/api/products/"+created.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doGet(t, "/api/products/"+created.ID, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}
