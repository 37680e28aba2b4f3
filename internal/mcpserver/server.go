// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the workstation's draft tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/malaztl/nocturne/internal/draft"
	"github.com/malaztl/nocturne/internal/richtext"
	"github.com/malaztl/nocturne/internal/session"
)

// Server wraps the MCP server with workstation tools.
type Server struct {
	mcp         *server.MCPServer
	coordinator *draft.Coordinator
	sessions    *session.Cache
}

// New creates a new MCP server with all workstation tools registered.
func New(coordinator *draft.Coordinator, sessions *session.Cache) *Server {
	s := &Server{coordinator: coordinator, sessions: sessions}

	s.mcp = server.NewMCPServer(
		"Nocturne",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_workstation",
		mcp.WithDescription("Read the current new-novel workstation draft envelope as JSON."),
	), s.readWorkstation)

	s.mcp.AddTool(mcp.NewTool("save_chapter_text",
		mcp.WithDescription("Replace the draft's chapter text. The text MUST be plain prose; "+
			"use serialize_document first if you hold a structured document tree. Read the "+
			"nocturne://draft-format resource for the envelope contract."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Plain chapter text")),
	), s.saveChapterText)

	s.mcp.AddTool(mcp.NewTool("clear_workstation",
		mcp.WithDescription("Discard the workstation draft and reset it to defaults."),
	), s.clearWorkstation)

	s.mcp.AddTool(mcp.NewTool("serialize_document",
		mcp.WithDescription("Flatten rich-text editor content (JSON node tree or plain text) "+
			"into plain text with [[img:url]] markers."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document tree JSON or plain text")),
	), s.serializeDocument)

	s.mcp.AddTool(mcp.NewTool("session_info",
		mcp.WithDescription("Report who is signed in on this workstation. The token is never returned."),
	), s.sessionInfo)

	// Resource: draft envelope contract.
	s.mcp.AddResource(
		mcp.NewResource("nocturne://draft-format", "Draft Envelope Contract",
			mcp.WithResourceDescription("Canonical JSON shape of the persisted workstation draft."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDraftFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) readWorkstation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env := s.coordinator.Snapshot()
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) saveChapterText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.coordinator.Update(func(e *draft.Envelope) {
		e.ChapterText = text
	})
	return mcp.NewToolResultText("chapter text updated"), nil
}

func (s *Server) clearWorkstation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.coordinator.Clear(ctx)
	return mcp.NewToolResultText("workstation cleared"), nil
}

func (s *Server) serializeDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(richtext.CoerceToPlainText(content)), nil
}

func (s *Server) sessionInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := s.sessions.Read()
	if sess == nil {
		return mcp.NewToolResultText("not signed in"), nil
	}
	info := map[string]any{
		"name":   sess.User.Name,
		"email":  sess.User.Email,
		"role":   sess.User.Role,
		"status": sess.User.Status,
	}
	out, _ := json.MarshalIndent(info, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDraftFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "nocturne://draft-format",
			MIMEType: "text/markdown",
			Text:     DraftFormatContract,
		},
	}, nil
}
