package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeBase_RoutesByType(t *testing.T) {
	raw := []byte(`{"type":"EVENT","protocol_version":"1.0","ref":"r1","observer_id":"o1","kind":"MOVE","to":{"world":"w","pos":[1,2,3],"yaw":90}}`)
	base, err := DecodeBase(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if base.Type != TypeEvent || base.Ref != "r1" {
		t.Fatalf("got %+v", base)
	}
	var ev EventMsg
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.To == nil || ev.To.Pos != [3]float64{1, 2, 3} || ev.To.Yaw != 90 {
		t.Fatalf("to: %+v", ev.To)
	}
}

func TestDecodeBase_Malformed(t *testing.T) {
	if _, err := DecodeBase([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderMsg_OmitsUnsetFields(t *testing.T) {
	b, err := json.Marshal(RenderMsg{Type: TypeRender, ProtocolVersion: Version, ObserverID: "o", Op: OpDespawn, Handle: "h"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, field := range []string{`"location"`, `"delta"`, `"yaw"`, `"item"`} {
		if strings.Contains(s, field) {
			t.Fatalf("unexpected %s in %s", field, s)
		}
	}
}
