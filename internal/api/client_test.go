package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStockDecodesLooseMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/stock" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req StockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Symbol != "AAPL" || req.Period != "6mo" {
			t.Errorf("request = %+v, want AAPL/6mo", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"metrics": {"symbol":"AAPL","name":"Apple Inc.","currentPrice":187.44,"roi":-5.2,
				"pe":29.1,"eps":"N/A","beta":null,"dividend":"0.5%","marketCap":"2.91T","avgVolume":"52,000,000"},
			"charts": {"price":{"data":[],"layout":{}},"roi":{"data":[],"layout":{}}}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	resp, err := c.Stock(context.Background(), " aapl ", "6mo")
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	m := resp.Metrics
	if m.ROI != -5.2 {
		t.Errorf("ROI = %v, want -5.2", m.ROI)
	}
	if !m.PE.IsNum || m.PE.String() != "29.10" {
		t.Errorf("PE = %+v, want numeric 29.10", m.PE)
	}
	if m.EPS.IsNum || m.EPS.String() != "N/A" {
		t.Errorf("EPS = %+v, want text N/A", m.EPS)
	}
	if m.Beta.String() != "N/A" {
		t.Errorf("Beta = %q, want N/A for null", m.Beta.String())
	}
	if m.MarketCap.String() != "2.91T" {
		t.Errorf("MarketCap = %q", m.MarketCap.String())
	}
	if len(resp.Charts) != 2 {
		t.Errorf("got %d charts, want 2", len(resp.Charts))
	}
}

func TestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"No data found for 'ZZZZ'. Check the symbol."}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Stock(context.Background(), "ZZZZ", "1y")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v (%T), want *UpstreamError", err, err)
	}
	if ue.StatusCode != http.StatusNotFound || ue.Endpoint != "/api/stock" {
		t.Errorf("UpstreamError = %+v", ue)
	}
	if ue.Error() != "No data found for 'ZZZZ'. Check the symbol." {
		t.Errorf("message = %q", ue.Error())
	}
}

func TestRequestErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).News(context.Background(), "AAPL")
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if re.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", re.StatusCode)
	}
}

func TestRequestErrorOnUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).LiveChart(context.Background(), "AAPL")
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if re.Endpoint != "/api/livechart" {
		t.Errorf("Endpoint = %q", re.Endpoint)
	}
}

func TestChatAndLiveChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			var req ChatRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(ChatResponse{Reply: "**" + req.Message + "**"})
		case "/api/livechart":
			w.Write([]byte(`{"chart":{"data":[]},"price":101.5,"open":100,"change":1.5,"changePct":1.5,"high":102,"low":99.5,"timestamp":"10:31:02"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	reply, err := c.Chat(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "**hi**" {
		t.Errorf("reply = %q", reply)
	}

	snap, err := c.LiveChart(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("LiveChart: %v", err)
	}
	if snap.Price != 101.5 || snap.Open != 100 || snap.Timestamp != "10:31:02" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Chart) == 0 {
		t.Error("chart payload dropped")
	}
}

func TestFigureRoundTrip(t *testing.T) {
	var f struct {
		A Figure `json:"a"`
		B Figure `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":1.5,"b":"N/A"}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":1.5,"b":"N/A"}` {
		t.Errorf("marshal = %s", out)
	}
	if NormalizeSymbol("  tsla ") != "TSLA" {
		t.Error("NormalizeSymbol did not trim and upper-case")
	}
}
