package classifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     int
		first    string
	}{
		{"list", `[{"Predicted Item":"Tent","Category":"Outdoor","Confidence":0.91},{"Predicted Item":"Tarp","Category":"Outdoor","Confidence":0.05}]`, 2, "Tent"},
		{"single object", `{"Predicted Item":"Drill","Category":"Tools","Confidence":0.8}`, 1, "Drill"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName, gotBody string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				f, hdr, err := r.FormFile("image")
				if err != nil {
					t.Errorf("FormFile: %v", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				b, _ := io.ReadAll(f)
				gotName, gotBody = hdr.Filename, string(b)
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, zap.NewNop())
			preds, err := c.Classify(context.Background(), "tent.jpg", strings.NewReader("jpeg-bytes"))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if len(preds) != tt.want || preds[0].PredictedItem != tt.first {
				t.Errorf("predictions = %+v", preds)
			}
			if gotName != "tent.jpg" || gotBody != "jpeg-bytes" {
				t.Errorf("upload = %q %q", gotName, gotBody)
			}
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("bad") == "json" {
			w.Write([]byte(`not json`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second, zap.NewNop()).Classify(context.Background(), "a.jpg", strings.NewReader("x")); err == nil {
		t.Error("500 accepted")
	}
	if _, err := NewClient(srv.URL+"?bad=json", time.Second, zap.NewNop()).Classify(context.Background(), "a.jpg", strings.NewReader("x")); err == nil {
		t.Error("bad json accepted")
	}
}
