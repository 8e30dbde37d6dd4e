// Package server runs the MCP stdio loop and routes tools/call requests to the tool handler.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/golovatskygroup/mcp-elastic/internal/registry"
	"github.com/golovatskygroup/mcp-elastic/internal/response"
	"github.com/golovatskygroup/mcp-elastic/pkg/mcp"
)

// Protocol versions the server speaks, newest first.
var supportedVersions = []string{"2025-03-26", "2024-11-05"}

const DefaultMaxConcurrentCalls = 8

// ToolHandler runs one tool call.
type ToolHandler interface {
	Handle(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error)
}

// Options configures a Server.
type Options struct {
	Name               string
	Version            string
	MaxConcurrentCalls int
	Logger             *zap.Logger
}

// Server is the MCP server
type Server struct {
	transport *mcp.Transport
	registry  *registry.Registry
	handler   ToolHandler
	logger    *zap.Logger
	info      mcp.ServerInfo
	maxCalls  int
}

// New creates a server reading requests from in and writing responses to out.
func New(in io.Reader, out io.Writer, reg *registry.Registry, h ToolHandler, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxConcurrentCalls <= 0 {
		opts.MaxConcurrentCalls = DefaultMaxConcurrentCalls
	}
	if opts.Name == "" {
		opts.Name = "mcp-elastic"
	}
	return &Server{
		transport: mcp.NewTransport(in, out),
		registry:  reg,
		handler:   h,
		logger:    opts.Logger,
		info:      mcp.ServerInfo{Name: opts.Name, Version: opts.Version},
		maxCalls:  opts.MaxConcurrentCalls,
	}
}

type readResult struct {
	req *mcp.Request
	err error
}

// Run serves until the input ends or ctx is cancelled. Tool calls run concurrently up to
// the configured limit; all in-flight calls finish before Run returns.
func (s *Server) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(s.maxCalls)

	msgs := make(chan readResult)
	go func() {
		defer close(msgs)
		for {
			req, err := s.transport.ReadMessage()
			select {
			case msgs <- readResult{req: req, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, mcp.ErrMalformed) {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return g.Wait()
			}
			if m.err != nil {
				if errors.Is(m.err, io.EOF) {
					return g.Wait()
				}
				if errors.Is(m.err, mcp.ErrMalformed) {
					s.logger.Warn("malformed message", zap.Error(m.err))
					s.write(mcp.NewErrorResponse(nil, mcp.ParseError, "Parse error"))
					continue
				}
				_ = g.Wait()
				return fmt.Errorf("read message: %w", m.err)
			}
			s.route(ctx, &g, m.req)
		}
	}
}

func (s *Server) route(ctx context.Context, g *errgroup.Group, req *mcp.Request) {
	if req.Method == "tools/call" && !req.IsNotification() {
		g.Go(func() error {
			s.write(s.handleCallTool(ctx, req))
			return nil
		})
		return
	}
	if resp := s.handleRequest(req); resp != nil {
		s.write(resp)
	}
}

func (s *Server) write(resp *mcp.Response) {
	if resp == nil {
		return
	}
	if err := s.transport.WriteResponse(resp); err != nil {
		s.logger.Error("write response", zap.Any("id", resp.ID), zap.Error(err))
	}
}

func (s *Server) handleRequest(req *mcp.Request) *mcp.Response {
	if req.IsNotification() {
		// No response needed for notifications
		s.logger.Debug("notification", zap.String("method", req.Method))
		return nil
	}
	if req.JSONRPC != "2.0" {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidRequest, "Invalid request: jsonrpc must be \"2.0\"")
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleListTools(req)
	case "ping":
		return s.handlePing(req)
	default:
		return mcp.NewErrorResponse(req.ID, mcp.MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func negotiateVersion(requested string) string {
	for _, v := range supportedVersions {
		if v == requested {
			return v
		}
	}
	return supportedVersions[0]
}

func (s *Server) handleInitialize(req *mcp.Request) *mcp.Response {
	var params mcp.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: "+err.Error())
		}
	}
	version := negotiateVersion(params.ProtocolVersion)
	s.logger.Info("initialize",
		zap.String("client", params.ClientInfo.Name),
		zap.String("client_version", params.ClientInfo.Version),
		zap.String("requested_protocol", params.ProtocolVersion),
		zap.String("protocol", version),
	)

	result := mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities: mcp.ServerCapabilities{
			Tools: &mcp.ToolsCapability{},
		},
		ServerInfo:   s.info,
		Instructions: s.buildInstructions(),
	}

	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) handleListTools(req *mcp.Request) *mcp.Response {
	resp, err := mcp.NewResponse(req.ID, mcp.ListToolsResult{Tools: s.registry.List()})
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) handleCallTool(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: "+err.Error())
	}

	var result *mcp.CallToolResult
	if _, known := s.registry.Get(params.Name); !known {
		result = response.ErrorResult(s.unknownToolMessage(params.Name))
	} else {
		var err error
		result, err = s.handler.Handle(ctx, params.Name, params.Arguments)
		if err != nil {
			return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
		}
	}

	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) unknownToolMessage(name string) string {
	msg := fmt.Sprintf("Tool '%s' not found.", name)
	suggestions := s.registry.Suggest(name, 3)
	if len(suggestions) == 0 {
		return msg
	}
	names := make([]string, 0, len(suggestions))
	for _, sug := range suggestions {
		names = append(names, sug.Name)
	}
	return msg + " Did you mean: " + strings.Join(names, ", ") + "?"
}

func (s *Server) handlePing(req *mcp.Request) *mcp.Response {
	resp, _ := mcp.NewResponse(req.ID, map[string]any{})
	return resp
}

func (s *Server) buildInstructions() string {
	var sb strings.Builder
	sb.WriteString("Provides access to Elasticsearch. All tools are read-only.\n\n")
	sb.WriteString("Large results are capped: search sizes are clamped and long outputs are truncated, ")
	sb.WriteString("so prefer filters, aggregations and the 'fields' parameter.\n\n")
	sb.WriteString("Available categories:\n")

	for _, cat := range s.registry.Categories() {
		sb.WriteString(fmt.Sprintf("- %s: %s (%s)\n", cat.Name, cat.Description, strings.Join(cat.Tools, ", ")))
	}

	sb.WriteString(fmt.Sprintf("\nTotal available tools: %d\n", s.registry.Len()))
	return sb.String()
}
