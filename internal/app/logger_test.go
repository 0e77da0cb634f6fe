package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerProdIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")
	log.Debug("hidden")
	log.Info("room.created", "room", "r1")

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("not json: %q (%v)", line, err)
	}
	if rec["msg"] != "room.created" || rec["room"] != "r1" || rec["svc"] != "live-rooms" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewLoggerDevIsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "dev").Debug("ws.accept", "conn", "c1")
	out := buf.String()
	if !strings.Contains(out, "msg=ws.accept") || !strings.Contains(out, "conn=c1") {
		t.Fatalf("unexpected output %q", out)
	}
}
