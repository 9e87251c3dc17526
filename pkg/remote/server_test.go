package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/snapshot"
)

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]ServerOption{WithServerLogger(quietLogger)}, opts...)
	srv := NewServer(clickerApp, DefaultServerConfig(), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	f, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	return f
}

func readBatch(t *testing.T, conn *websocket.Conn) *protocol.Batch {
	t.Helper()
	var a protocol.Assembler
	for {
		f := readFrame(t, conn)
		if f.Type != protocol.FrameMutations {
			t.Fatalf("frame type = %s, want Mutations", f.Type)
		}
		b, err := a.Add(f)
		if err != nil {
			t.Fatalf("Assembler.Add: %v", err)
		}
		if b != nil {
			return b
		}
	}
}

func writeFrame(t *testing.T, conn *websocket.Conn, f *protocol.Frame) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, f.Encode()); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServerSession(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	srv, ts := newTestServer(t, WithSnapshotStore(store))
	conn := dial(t, ts)

	f := readFrame(t, conn)
	if f.Type != protocol.FrameHello {
		t.Fatalf("first frame = %s, want Hello", f.Type)
	}
	hello, err := protocol.DecodeHello(f.Payload)
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if hello.Version != protocol.ProtocolVersion || hello.Root != "n1" || hello.SessionID == "" {
		t.Errorf("hello = %+v", hello)
	}

	first := readBatch(t, conn)
	if first.Seq != 1 {
		t.Errorf("first batch seq = %d, want 1", first.Seq)
	}
	want := []protocol.Mutation{
		{Op: protocol.OpCreateElement, Node: "n2", Key: "button"},
		{Op: protocol.OpListen, Node: "n2", Key: "click"},
		{Op: protocol.OpInsert, Parent: "n1", Node: "n2", Index: 0},
		{Op: protocol.OpCreateText, Node: "n3", Value: "0"},
		{Op: protocol.OpInsert, Parent: "n2", Node: "n3", Index: 0},
	}
	if diff := cmp.Diff(want, first.Mutations); diff != "" {
		t.Errorf("first batch mismatch (-want +got):\n%s", diff)
	}

	// Ping is answered with the same timestamp.
	writeFrame(t, conn, protocol.NewFrame(protocol.FrameControl,
		protocol.EncodeControl(&protocol.Control{Type: protocol.ControlPing, Timestamp: 42})))
	f = readFrame(t, conn)
	pong, err := protocol.DecodeControl(f.Payload)
	if err != nil || f.Type != protocol.FrameControl {
		t.Fatalf("pong frame = %s, %v", f.Type, err)
	}
	if pong.Type != protocol.ControlPong || pong.Timestamp != 42 {
		t.Errorf("pong = %+v", pong)
	}

	writeFrame(t, conn, protocol.NewFrame(protocol.FrameEvent,
		protocol.EncodeEvent(&protocol.Event{Seq: 1, Node: "n2", Type: "click"})))
	second := readBatch(t, conn)
	if second.Seq != 2 || second.Epoch <= first.Epoch {
		t.Errorf("second batch seq=%d epoch=%d, first epoch=%d", second.Seq, second.Epoch, first.Epoch)
	}
	var setText *protocol.Mutation
	for i := range second.Mutations {
		if second.Mutations[i].Op == protocol.OpSetText {
			setText = &second.Mutations[i]
		}
	}
	if setText == nil || setText.Node != "n3" || setText.Value != "1" {
		t.Errorf("second batch = %v, want SetText n3 1", second.Mutations)
	}

	if diff := cmp.Diff([]string{hello.SessionID}, srv.SessionIDs()); diff != "" {
		t.Errorf("SessionIDs mismatch (-want +got):\n%s", diff)
	}
	code, body := get(t, ts.URL+"/sessions")
	var list struct {
		Sessions []string `json:"sessions"`
	}
	if err := json.Unmarshal([]byte(body), &list); err != nil || code != http.StatusOK {
		t.Fatalf("GET /sessions = %d %s", code, body)
	}
	if len(list.Sessions) != 1 || list.Sessions[0] != hello.SessionID {
		t.Errorf("sessions = %v", list.Sessions)
	}

	code, body = get(t, ts.URL+"/sessions/"+hello.SessionID+"/snapshot")
	if code != http.StatusOK || body != `<button data-on-click="true">1</button>` {
		t.Errorf("GET snapshot = %d %q", code, body)
	}
	if code, _ := get(t, ts.URL+"/sessions/nope/snapshot"); code != http.StatusNotFound {
		t.Errorf("GET unknown session snapshot = %d, want 404", code)
	}

	resp, err := http.Post(ts.URL+"/sessions/"+hello.SessionID+"/snapshot?key=after-click", "", nil)
	if err != nil {
		t.Fatalf("POST snapshot: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("POST snapshot = %d, want 201", resp.StatusCode)
	}
	code, body = get(t, ts.URL+"/snapshots/after-click")
	if code != http.StatusOK || !strings.Contains(body, ">1</button>") {
		t.Errorf("GET stored snapshot = %d %q", code, body)
	}
	code, body = get(t, ts.URL+"/snapshots")
	if code != http.StatusOK || !strings.Contains(body, "after-click") {
		t.Errorf("GET /snapshots = %d %q", code, body)
	}

	code, body = get(t, ts.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", code)
	}
	for _, name := range []string{
		"reconciler_engine_passes_total",
		"reconciler_engine_state_updates_total",
		`reconciler_http_websocket_upgrades_total{result="ok"} 1`,
		`reconciler_http_requests_total{code="200",method="GET",route="/snapshots/{key}"}`,
	} {
		if !strings.Contains(body, name) {
			t.Errorf("/metrics missing %s", name)
		}
	}
}

func TestServerPage(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := get(t, ts.URL+"/")
	if code != http.StatusOK {
		t.Fatalf("GET / = %d", code)
	}
	for _, want := range []string{`data-nid="n1"`, `data-ws="/ws"`, `src="/client.js"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %s:\n%s", want, body)
		}
	}

	code, body = get(t, ts.URL+"/client.js")
	if code != http.StatusOK || !strings.Contains(body, "FRAME_MUTATIONS") {
		t.Errorf("GET /client.js = %d", code)
	}
}

func TestServerWithoutStore(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/snapshots", "/snapshots/x"} {
		if code, _ := get(t, ts.URL+path); code != http.StatusNotImplemented {
			t.Errorf("GET %s = %d, want 501", path, code)
		}
	}
}

func TestServerMaxSessions(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxSessions = 1
	srv := NewServer(clickerApp, cfg, WithServerLogger(quietLogger))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})

	conn := dial(t, ts)
	readFrame(t, conn) // hello

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second Dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("second Dial response = %v, want 503", resp)
	}
}
