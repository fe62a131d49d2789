package sync

import (
	"sync"
	"testing"
)

// routeSession builds a session whose route method can be exercised directly,
// without a live transport.
func routeSession(t *testing.T, store *fakeStore, sink *fakeSink) *Session {
	t.Helper()
	return newTestSession(t, &fakeDialer{}, store, sink, fastRetries(5))
}

type recordingObserver struct {
	mu       sync.Mutex
	telem    []TelemetrySnapshot
	statuses []DeviceStatus
}

func (o *recordingObserver) OnTelemetry(snap TelemetrySnapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.telem = append(o.telem, snap)
}

func (o *recordingObserver) OnDeviceStatus(status DeviceStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func TestRoute_TelemetryUpdatesCacheAndObservers(t *testing.T) {
	s := routeSession(t, &fakeStore{}, &fakeSink{})
	obs := &recordingObserver{}
	s.AddObserver(obs)

	s.route([]byte(`{"type":"telemetry","data":{"device_id":"dev-1","telemetry":{"temp":19.5},"timestamp":"2026-01-01T00:00:00Z","user_id":"user-1"}}`))

	snap := s.Cache().Telemetry("dev-1")
	if snap == nil {
		t.Fatal("telemetry not cached")
	}
	if snap.Measurements["temp"] != 19.5 {
		t.Errorf("temp = %v, want 19.5", snap.Measurements["temp"])
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.telem) != 1 {
		t.Fatalf("observer telemetry count = %d, want 1", len(obs.telem))
	}
	if obs.telem[0].DeviceID != "dev-1" {
		t.Errorf("observer device = %s, want dev-1", obs.telem[0].DeviceID)
	}
}

func TestRoute_DeviceStatusUpdatesCacheAndObservers(t *testing.T) {
	sink := &fakeSink{}
	s := routeSession(t, &fakeStore{}, sink)
	obs := &recordingObserver{}
	s.AddObserver(obs)

	s.route([]byte(`{"type":"device_status","data":{"device_id":"dev-1","status":"offline","last_seen":"2026-01-01T00:00:00Z","user_id":"user-1"}}`))

	st := s.Cache().Status("dev-1")
	if st == nil {
		t.Fatal("status not cached")
	}
	if st.Status != "offline" {
		t.Errorf("status = %s, want offline", st.Status)
	}

	if got := sink.alertCount(); got != 1 {
		t.Errorf("alert count = %d, want 1 (offline transition)", got)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.statuses) != 1 {
		t.Errorf("observer status count = %d, want 1", len(obs.statuses))
	}
}

func TestRoute_NotificationForwardedToStore(t *testing.T) {
	store := &fakeStore{}
	s := routeSession(t, store, &fakeSink{})

	s.route([]byte(`{"type":"notification","data":{"id":"n-1","type":"alert","title":"Pump","message":"Pressure high","user_id":"user-1"}}`))

	if got := store.pushCount(); got != 1 {
		t.Errorf("store push count = %d, want 1", got)
	}
}

func TestRoute_CommandResultRecordedOnce(t *testing.T) {
	store := &fakeStore{}
	s := routeSession(t, store, &fakeSink{})

	frame := []byte(`{"type":"command_result","data":{"command_id":"cmd-1","device_id":"dev-1","success":true,"user_id":"user-1"}}`)
	s.route(frame)
	s.route(frame)

	r := s.Cache().Result("cmd-1")
	if r == nil {
		t.Fatal("command result not recorded")
	}
	if got := store.localTypes(); len(got) != 1 {
		t.Errorf("synthesised notification count = %d, want 1", len(got))
	}
}

func TestRoute_SystemAlertEmitted(t *testing.T) {
	sink := &fakeSink{}
	s := routeSession(t, &fakeStore{}, sink)

	s.route([]byte(`{"type":"system_alert","data":{"alert_type":"maintenance","message":"Backend restarting","severity":"warning"}}`))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.alerts) != 1 {
		t.Fatalf("alert count = %d, want 1", len(sink.alerts))
	}
	if sink.alerts[0] != SeverityWarning {
		t.Errorf("alert severity = %s, want warning", sink.alerts[0])
	}
	if sink.messages[0] != "Backend restarting" {
		t.Errorf("alert message = %q, want backend message", sink.messages[0])
	}
}

func TestRoute_MalformedAndUnknownFramesIgnored(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	s := routeSession(t, store, sink)

	frames := []string{
		`not json at all`,
		`{"type":"telemetry","data":"not an object"}`,
		`{"type":"telemetry","data":{"telemetry":{"temp":1}}}`,
		`{"type":"device_status","data":{"status":"active"}}`,
		`{"type":"command_result","data":{"device_id":"dev-1"}}`,
		`{"type":"something_new","data":{}}`,
		`{"type":"connection_info","message":"hello"}`,
		`{"type":"error","message":"bad subscription"}`,
	}
	for _, frame := range frames {
		s.route([]byte(frame))
	}

	if got := len(s.Cache().RecentEvents()); got != 0 {
		t.Errorf("recent events = %d, want 0 (all frames rejected or inert)", got)
	}
	if got := store.pushCount(); got != 0 {
		t.Errorf("store pushes = %d, want 0", got)
	}
	if got := sink.alertCount(); got != 0 {
		t.Errorf("alerts = %d, want 0", got)
	}
}

func TestRoute_SeverityMapping(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"info", SeverityInfo},
		{"warn", SeverityWarning},
		{"warning", SeverityWarning},
		{"error", SeverityError},
		{"critical", SeverityCritical},
		{"bogus", SeverityInfo},
		{"", SeverityInfo},
	}

	for _, tt := range tests {
		if got := parseSeverity(tt.in); got != tt.want {
			t.Errorf("parseSeverity(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
