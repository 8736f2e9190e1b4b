package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVisionDetector_Detect(t *testing.T) {
	var gotKey string
	var gotReq visionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{"textAnnotations":[
			{"description":"1234 Rank 4","boundingPoly":{"vertices":[{"x":0,"y":0},{"x":10,"y":0},{"x":10,"y":10},{"x":0,"y":10}]}},
			{"description":"1234","boundingPoly":{"vertices":[{"x":1,"y":1},{"x":5,"y":1},{"x":5,"y":3},{"x":1,"y":3}]}}
		]}]}`)
	}))
	defer srv.Close()

	d := NewVisionDetector("secret")
	d.Endpoint = srv.URL

	got, err := d.Detect(context.Background(), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if gotKey != "secret" {
		t.Errorf("api key: got %q", gotKey)
	}
	if len(gotReq.Requests) != 1 || gotReq.Requests[0].Features[0].Type != "TEXT_DETECTION" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	decoded, _ := base64.StdEncoding.DecodeString(gotReq.Requests[0].Image.Content)
	if string(decoded) != "image-bytes" {
		t.Errorf("image content: got %q", decoded)
	}
	if len(got) != 2 || got[1].Description != "1234" {
		t.Errorf("unexpected annotations: %+v", got)
	}
}

func TestVisionDetector_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewVisionDetector("k")
	d.Endpoint = srv.URL

	if _, err := d.Detect(context.Background(), []byte("x")); err == nil {
		t.Error("Detect should fail on non-200 status")
	}
}

func TestVisionDetector_MissingKey(t *testing.T) {
	d := NewVisionDetector("")
	if _, err := d.Detect(context.Background(), []byte("x")); err == nil {
		t.Error("Detect should fail without an API key")
	}
}
