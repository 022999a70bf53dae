package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
)

// VERSION is the server version reported during the MCP handshake
const VERSION = "0.1.0"

const protocolVersion = "2024-11-05"

// ServiceHandler represents a service that provides tools and resources
type ServiceHandler interface {
	GetTools() []Tool
	GetResources() []Resource
	HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error)
	HandleResourceCall(ctx context.Context, uri string) (interface{}, error)
}

// Tool represents an MCP tool
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema represents the JSON schema for tool input. Property types
// stay within the Vertex-AI-compatible subset: no union types with lists.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property represents a property in the input schema
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Items       *Property `json:"items,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// Resource represents an MCP resource
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// MCPServer speaks the Model Context Protocol over newline-delimited
// JSON-RPC on stdio and routes tool and resource calls to the registered
// service handlers.
type MCPServer struct {
	mu            sync.RWMutex
	services      map[string]ServiceHandler
	tools         []Tool
	resources     []Resource
	toolOwner     map[string]ServiceHandler
	resourceOwner map[string]ServiceHandler
}

// NewMCPServer creates a new MCP server
func NewMCPServer() *MCPServer {
	return &MCPServer{
		services:      make(map[string]ServiceHandler),
		toolOwner:     make(map[string]ServiceHandler),
		resourceOwner: make(map[string]ServiceHandler),
	}
}

// RegisterService registers a service handler and indexes its tools and
// resources for dispatch
func (s *MCPServer) RegisterService(name string, handler ServiceHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tool := range handler.GetTools() {
		s.tools = append(s.tools, tool)
		s.toolOwner[tool.Name] = handler
	}
	for _, resource := range handler.GetResources() {
		s.resources = append(s.resources, resource)
		s.resourceOwner[resource.URI] = handler
	}
	s.services[name] = handler
}

// Start serves MCP over stdio until the peer disconnects
func (s *MCPServer) Start() error {
	stream := NewNewlineDelimitedStream(os.Stdin, os.Stdout)
	conn := jsonrpc2.NewConn(context.Background(), stream, &rpcHandler{server: s})
	<-conn.DisconnectNotify()
	return nil
}

// NewlineDelimitedStream implements jsonrpc2.ObjectStream for
// newline-delimited JSON, the framing MCP stdio transport uses
type NewlineDelimitedStream struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewNewlineDelimitedStream creates a new newline-delimited JSON stream
func NewNewlineDelimitedStream(r io.Reader, w io.Writer) *NewlineDelimitedStream {
	return &NewlineDelimitedStream{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// ReadObject reads a newline-delimited JSON object
func (s *NewlineDelimitedStream) ReadObject(v interface{}) error {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		return err
	}
	return json.Unmarshal(line, v)
}

// WriteObject writes a newline-delimited JSON object
func (s *NewlineDelimitedStream) WriteObject(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("\n"))
	return err
}

// Close closes the stream. Stdin and stdout stay open.
func (s *NewlineDelimitedStream) Close() error {
	return nil
}

type rpcHandler struct {
	server *MCPServer
}

func (h *rpcHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch req.Method {
	case "initialize":
		h.handleInitialize(ctx, conn, req)
	case "initialized", "notifications/initialized":
		// Client confirms initialization.
	case "tools/list":
		h.handleToolsList(ctx, conn, req)
	case "tools/call":
		h.handleToolCall(ctx, conn, req)
	case "resources/list":
		h.handleResourcesList(ctx, conn, req)
	case "resources/read":
		h.handleResourceRead(ctx, conn, req)
	case "completion/complete":
		h.handleCompletion(ctx, conn, req)
	default:
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		})
	}
}

func (h *rpcHandler) handleInitialize(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	response := struct {
		ProtocolVersion string `json:"protocolVersion"`
		Capabilities    struct {
			Tools     interface{} `json:"tools,omitempty"`
			Resources interface{} `json:"resources,omitempty"`
		} `json:"capabilities"`
		ServerInfo struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}{
		ProtocolVersion: protocolVersion,
	}
	response.ServerInfo.Name = "gws-mcp-advanced"
	response.ServerInfo.Version = VERSION
	response.Capabilities.Tools = struct{}{}
	response.Capabilities.Resources = struct{}{}

	_ = conn.Reply(ctx, req.ID, response)
}

func (h *rpcHandler) handleToolsList(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h.server.mu.RLock()
	tools := h.server.tools
	h.server.mu.RUnlock()

	_ = conn.Reply(ctx, req.ID, struct {
		Tools []Tool `json:"tools"`
	}{Tools: tools})
}

// toolResult is the MCP content envelope for a tool call reply
type toolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (h *rpcHandler) handleToolCall(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if req.Params == nil || json.Unmarshal(*req.Params, &params) != nil {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: "invalid parameters",
		})
		return
	}

	h.server.mu.RLock()
	handler := h.server.toolOwner[params.Name]
	h.server.mu.RUnlock()
	if handler == nil {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("tool not found: %s", params.Name),
		})
		return
	}

	result, err := handler.HandleToolCall(ctx, params.Name, params.Arguments)
	if err != nil {
		_ = conn.Reply(ctx, req.ID, toolResult{
			Content: []toolContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
		return
	}

	_ = conn.Reply(ctx, req.ID, toolResult{
		Content: []toolContent{{Type: "text", Text: renderResult(result)}},
	})
}

// renderResult flattens a handler result into the text MCP expects
func renderResult(result interface{}) string {
	switch v := result.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Sprintf("%v", result)
		}
		return string(data)
	}
}

func (h *rpcHandler) handleResourcesList(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h.server.mu.RLock()
	resources := h.server.resources
	h.server.mu.RUnlock()

	_ = conn.Reply(ctx, req.ID, struct {
		Resources []Resource `json:"resources"`
	}{Resources: resources})
}

func (h *rpcHandler) handleResourceRead(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params struct {
		URI string `json:"uri"`
	}
	if req.Params == nil || json.Unmarshal(*req.Params, &params) != nil {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: "invalid parameters",
		})
		return
	}

	h.server.mu.RLock()
	handler := h.server.resourceOwner[params.URI]
	h.server.mu.RUnlock()
	if handler == nil {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("resource not found: %s", params.URI),
		})
		return
	}

	result, err := handler.HandleResourceCall(ctx, params.URI)
	if err != nil {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInternalError,
			Message: err.Error(),
		})
		return
	}

	type resourceContent struct {
		URI      string `json:"uri"`
		MimeType string `json:"mimeType,omitempty"`
		Text     string `json:"text,omitempty"`
	}
	_ = conn.Reply(ctx, req.ID, struct {
		Contents []resourceContent `json:"contents"`
	}{
		Contents: []resourceContent{{
			URI:      params.URI,
			MimeType: "text/plain",
			Text:     renderResult(result),
		}},
	})
}

func (h *rpcHandler) handleCompletion(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	response := struct {
		Completion struct {
			Values []string `json:"values"`
		} `json:"completion"`
	}{}
	response.Completion.Values = []string{}
	_ = conn.Reply(ctx, req.ID, response)
}
