package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"
)

// SchemaVersion is the version of the tool set, bumped when a tool or
// argument changes.
const SchemaVersion = "1.0.0"

const schemaURI = "autostack://schema"

type schemaResponse struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	Tools         []string `json:"tools"`
}

var toolNames = []string{
	"autostack_list_projects",
	"autostack_get_project",
	"autostack_get_plan",
	"autostack_plan_status",
	"autostack_memories",
	"autostack_get_document",
	"autostack_project_tree",
	"autostack_events",
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(schemaURI).
		Name(schemaURI).
		Description("Tool set version of the autostack MCP server").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			data, err := schemaDocument()
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      schemaURI,
				MimeType: "application/json",
				Text:     data,
			}, nil
		})
}

func schemaDocument() (string, error) {
	data, err := json.Marshal(schemaResponse{
		SchemaVersion: SchemaVersion,
		ServerVersion: Version,
		Tools:         toolNames,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
