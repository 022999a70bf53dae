package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

type fakeService struct {
	tools     []Tool
	resources []Resource
	lastCall  string
}

func (f *fakeService) GetTools() []Tool         { return f.tools }
func (f *fakeService) GetResources() []Resource { return f.resources }

func (f *fakeService) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	f.lastCall = name
	if name == "failing_tool" {
		return nil, fmt.Errorf("it broke")
	}
	return "ok: " + name, nil
}

func (f *fakeService) HandleResourceCall(ctx context.Context, uri string) (interface{}, error) {
	return "resource " + uri, nil
}

func TestRegisterService_IndexesTools(t *testing.T) {
	srv := NewMCPServer()
	svc := &fakeService{
		tools: []Tool{
			{Name: "tool_one"},
			{Name: "tool_two"},
		},
		resources: []Resource{{URI: "res://one"}},
	}
	srv.RegisterService("fake", svc)

	if len(srv.tools) != 2 {
		t.Errorf("got %d tools, want 2", len(srv.tools))
	}
	if srv.toolOwner["tool_one"] != svc || srv.toolOwner["tool_two"] != svc {
		t.Error("tool owner index incomplete")
	}
	if srv.resourceOwner["res://one"] != svc {
		t.Error("resource owner index incomplete")
	}
}

func TestRegisterService_MultipleServices(t *testing.T) {
	srv := NewMCPServer()
	a := &fakeService{tools: []Tool{{Name: "a_tool"}}}
	b := &fakeService{tools: []Tool{{Name: "b_tool"}}}
	srv.RegisterService("a", a)
	srv.RegisterService("b", b)

	if srv.toolOwner["a_tool"] != a || srv.toolOwner["b_tool"] != b {
		t.Error("tools routed to wrong services")
	}
}

func TestNewlineDelimitedStream_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	out := NewNewlineDelimitedStream(strings.NewReader(""), &buf)

	payload := map[string]interface{}{"jsonrpc": "2.0", "method": "ping"}
	if err := out.WriteObject(payload); err != nil {
		t.Fatalf("WriteObject() error: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("object not newline-terminated")
	}

	in := NewNewlineDelimitedStream(bytes.NewReader(buf.Bytes()), &bytes.Buffer{})
	var decoded map[string]interface{}
	if err := in.ReadObject(&decoded); err != nil {
		t.Fatalf("ReadObject() error: %v", err)
	}
	if decoded["method"] != "ping" {
		t.Errorf("got %v", decoded)
	}
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name   string
		result interface{}
		want   string
	}{
		{"string", "hello", "hello"},
		{"bytes", []byte("raw"), "raw"},
		{"map", map[string]string{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderResult(tt.result); got != tt.want {
				t.Errorf("renderResult() = %q, want %q", got, tt.want)
			}
		})
	}
}
