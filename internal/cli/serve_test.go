package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seqlane/seqlane/pkg/export"
	"github.com/seqlane/seqlane/pkg/store"
)

func testServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	c := New(&bytes.Buffer{}, LogInfo)
	st := store.NewMemoryStore()
	srv := httptest.NewServer(c.router(st))
	t.Cleanup(srv.Close)
	return srv, st
}

func postDoc(t *testing.T, srv *httptest.Server, name string) store.Record {
	t.Helper()
	doc := export.Document{Version: export.Version, Width: 150, Bins: []string{"g1"}}
	body, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL+"/layouts?name="+name, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var rec store.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestServeHealthz(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServeSaveAndGet(t *testing.T) {
	srv, _ := testServer(t)

	rec := postDoc(t, srv, "demo")
	if rec.ID == "" || rec.Name != "demo" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Document != nil {
		t.Error("save response should not echo the document")
	}

	resp, err := http.Get(srv.URL + "/layouts/" + rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got store.Record
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Document == nil || got.Document.Width != 150 {
		t.Errorf("document = %+v", got.Document)
	}
}

func TestServeList(t *testing.T) {
	srv, _ := testServer(t)
	postDoc(t, srv, "one")
	postDoc(t, srv, "two")

	resp, err := http.Get(srv.URL + "/layouts")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var recs []store.Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("records = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.Document != nil {
			t.Errorf("listing should omit documents, got one on %q", rec.Name)
		}
	}
}

func TestServeDelete(t *testing.T) {
	srv, _ := testServer(t)
	rec := postDoc(t, srv, "tmp")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/layouts/"+rec.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	getResp, err := http.Get(srv.URL + "/layouts/" + rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", getResp.StatusCode)
	}
}

func TestServeErrors(t *testing.T) {
	srv, _ := testServer(t)

	t.Run("MissingName", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/layouts", "application/json",
			strings.NewReader(`{"version":1}`))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("BadBody", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/layouts?name=x", "application/json",
			strings.NewReader("{nope"))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("NewerVersion", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/layouts?name=x", "application/json",
			strings.NewReader(`{"version":999}`))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", resp.StatusCode)
		}
	})

	t.Run("UnknownID", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/layouts/unknown")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}
