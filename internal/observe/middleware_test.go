package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// serveThrough runs one request through the middleware-wrapped handler and
// returns the recorder plus whatever the handler observed.
func serveThrough(t *testing.T, target string, status int, traceparent string) (*httptest.ResponseRecorder, string, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	var seenCID string
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCID = CorrelationID(r.Context())
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest("GET", target, nil)
	if traceparent != "" {
		req.Header.Set("traceparent", traceparent)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seenCID, reader, exp
}

func TestMiddleware_CorrelationID(t *testing.T) {
	rec, cid, _, _ := serveThrough(t, "/reservations", http.StatusOK, "")

	if len(cid) != 32 {
		t.Fatalf("handler saw correlation ID %q, want a 32-char trace ID", cid)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != cid {
		t.Errorf("X-Correlation-ID header = %q, want %q", got, cid)
	}
}

func TestMiddleware_SpanPerRequest(t *testing.T) {
	_, _, _, exp := serveThrough(t, "/span-test", http.StatusOK, "")

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "HTTP GET /span-test" {
		t.Errorf("span name = %q", spans[0].Name)
	}
}

func TestMiddleware_RecordsDuration(t *testing.T) {
	_, _, reader, _ := serveThrough(t, "/metrics-test", http.StatusOK, "")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "tablevox.http.request.duration")
	if met == nil {
		t.Fatal("request duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("unexpected metric data: %+v", met.Data)
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("method")); !ok || v.AsString() != "GET" {
		t.Errorf("method attribute = %v", v)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("path")); !ok || v.AsString() != "/metrics-test" {
		t.Errorf("path attribute = %v", v)
	}
}

func TestMiddleware_CapturesStatusCode(t *testing.T) {
	rec, _, _, exp := serveThrough(t, "/missing", http.StatusNotFound, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("response status = %d", rec.Code)
	}
	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	found := false
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" && a.Value.AsInt64() == 404 {
			found = true
		}
	}
	if !found {
		t.Error("span missing http.response.status_code=404")
	}
}

func TestMiddleware_W3CTraceContext(t *testing.T) {
	const upstream = "4bf92f3577b34da6a3ce929d0e0e4736"
	rec, cid, _, _ := serveThrough(t, "/propagate", http.StatusOK,
		"00-"+upstream+"-00f067aa0ba902b7-01")

	// The incoming trace ID must survive into the handler context and the
	// response header.
	if cid != upstream {
		t.Errorf("handler correlation ID = %q, want %q", cid, upstream)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != upstream {
		t.Errorf("X-Correlation-ID = %q, want %q", got, upstream)
	}
}
