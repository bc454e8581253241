package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hhpr/odot-converter/internal/config"
	"github.com/hhpr/odot-converter/internal/convert"
	"github.com/hhpr/odot-converter/internal/form"
	"github.com/hhpr/odot-converter/internal/security"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	converter *convert.Service
	paths     *security.PathValidator
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, converter *convert.Service) (*Server, error) {
	if converter == nil {
		return nil, fmt.Errorf("converter cannot be nil")
	}

	paths, err := security.NewPathValidator(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		converter: converter,
		paths:     paths,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Register report conversion tool
	convertReportTool := mcp.NewTool(
		"convert_report",
		mcp.WithDescription("Convert a HeadLight inspection export (JSON) into a filled ODOT daily report PDF"),
		mcp.WithString("export",
			mcp.Required(),
			mcp.Description("Path to the HeadLight export JSON file"),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Path to write the filled PDF to"),
		),
		mcp.WithString("photos_dir",
			mcp.Description("Optional directory of photos to place on the report's photo page"),
		),
	)
	s.mcpServer.AddTool(convertReportTool, s.handleConvertReport)

	// Register export validation tool
	validateExportTool := mcp.NewTool(
		"validate_export",
		mcp.WithDescription("Check whether a HeadLight export JSON file parses and carries the required sections"),
		mcp.WithString("export",
			mcp.Required(),
			mcp.Description("Path to the HeadLight export JSON file"),
		),
	)
	s.mcpServer.AddTool(validateExportTool, s.handleValidateExport)

	// Register template inspection tool
	templateFieldsTool := mcp.NewTool(
		"template_fields",
		mcp.WithDescription("List the AcroForm fields of the configured ODOT report template"),
	)
	s.mcpServer.AddTool(templateFieldsTool, s.handleTemplateFields)
}

// Handler functions
func (s *Server) handleConvertReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exportPath, err := request.RequireString("export")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	exportJSON, err := s.readWorkFile(exportPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := convert.ConvertRequest{ExportJSON: exportJSON}

	args := request.GetArguments()
	if dir, ok := args["photos_dir"].(string); ok && dir != "" {
		attachments, err := s.loadPhotos(dir)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.Attachments = attachments
	}

	result, err := s.converter.Convert(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolvedOutput, err := s.paths.NormalizePath(outputPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := os.WriteFile(resolvedOutput, result.PDF, 0o644); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write %s: %v", resolvedOutput, err)), nil
	}

	responseText := s.formatConvertResult(result, resolvedOutput)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleValidateExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exportPath, err := request.RequireString("export")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	exportJSON, err := s.readWorkFile(exportPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.converter.ValidateExport(convert.ValidateExportRequest{ExportJSON: exportJSON})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("Export %s is valid and convertible", exportPath)
	} else {
		responseText = fmt.Sprintf("Export validation failed for %s: %s", exportPath, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleTemplateFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := s.converter.TemplateFields()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := s.formatTemplateFields(fields)
	return mcp.NewToolResultText(responseText), nil
}

// readWorkFile resolves a path against the work directory and reads it.
func (s *Server) readWorkFile(path string) ([]byte, error) {
	resolved, err := s.paths.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", resolved, err)
	}
	return data, nil
}

// loadPhotos collects the image files of a directory in name order.
func (s *Server) loadPhotos(dir string) ([]convert.Attachment, error) {
	resolved, err := s.paths.NormalizePath(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo directory %s: %w", resolved, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".gif":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	attachments := make([]convert.Attachment, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(resolved, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read photo %s: %w", name, err)
		}
		attachments = append(attachments, convert.Attachment{Name: name, Data: data})
	}

	return attachments, nil
}

// Formatting methods
func (s *Server) formatConvertResult(result *convert.ConvertResult, outputPath string) string {
	text := fmt.Sprintf("Report written to %s\n", outputPath)
	text += fmt.Sprintf("Catalog version: %s\n", result.CatalogVersion)
	text += fmt.Sprintf("Resolved fields: %d\n", result.ResolvedFields)

	if len(result.Unresolved) > 0 {
		text += fmt.Sprintf("Unresolved fields (%d): %s\n", len(result.Unresolved), strings.Join(result.Unresolved, ", "))
	}

	text += fmt.Sprintf("Photos placed: %d\n", result.PhotosPlaced)
	if result.PhotosDropped > 0 {
		text += fmt.Sprintf("Photos dropped: %d (the photo page has %d slots)\n",
			result.PhotosDropped, s.converter.MaxPhotos())
	}

	return text
}

func (s *Server) formatTemplateFields(fields []form.FieldInfo) string {
	text := fmt.Sprintf("Template: %s\n", s.config.TemplatePath)
	text += fmt.Sprintf("Total fields: %d\n\nFields:\n", len(fields))

	for _, field := range fields {
		text += fmt.Sprintf("  %s (%s)", field.Name, field.Type)
		if field.MaxLen > 0 {
			text += fmt.Sprintf(", max length %d", field.MaxLen)
		}
		if field.ReadOnly {
			text += ", read-only"
		}
		text += "\n"
	}

	return text
}

// Run starts the MCP server over stdio
func (s *Server) Run(ctx context.Context) error {
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting ODOT converter MCP server in stdio mode")
		log.Printf("Work directory: %s", s.config.WorkDir)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
