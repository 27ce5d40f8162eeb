package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"pharmacist/internal/models"
	"pharmacist/internal/services"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "pharmacist"
	serverVersion = "1.0.0"
)

// Server exposes one user's medications and doses as MCP tools
type Server struct {
	mcpServer   *server.MCPServer
	medications *services.MedicationService
	reminders   *services.ReminderService
	userID      uint
}

func NewServer(medications *services.MedicationService, reminders *services.ReminderService, userID uint) *Server {
	s := &Server{
		medications: medications,
		reminders:   reminders,
		userID:      userID,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_medications",
			mcp.WithDescription("List the user's medications with how many reminders each has"),
			mcp.WithString("search", mcp.Description("Optional text matched against name, dosage and description")),
		),
		s.handleListMedications,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("upcoming_doses",
			mcp.WithDescription("List pending doses scheduled in the next hours"),
			mcp.WithNumber("hours", mcp.Description("Look-ahead in hours (default: 24)")),
		),
		s.handleUpcomingDoses,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("update_dose",
			mcp.WithDescription("Mark a dose taken, skipped or pending again, and/or change its notes"),
			mcp.WithNumber("log_id", mcp.Required(), mcp.Description("Dose (reminder log) ID")),
			mcp.WithString("status", mcp.Description("New status: pending, taken, skipped")),
			mcp.WithString("notes", mcp.Description("New notes")),
		),
		s.handleUpdateDose,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("generate_logs",
			mcp.WithDescription("Create pending doses of a reminder for the next days"),
			mcp.WithNumber("reminder_id", mcp.Required(), mcp.Description("Reminder ID")),
			mcp.WithNumber("days", mcp.Description("Number of days, 1 to 30 (default: 7)")),
		),
		s.handleGenerateLogs,
	)
}

func (s *Server) handleListMedications(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	medications, err := s.medications.List(s.userID, req.GetString("search", ""))
	if err != nil {
		return toolError("failed to list medications", err), nil
	}

	if len(medications) == 0 {
		return mcp.NewToolResultText("No medications found."), nil
	}
	return jsonResult(medications), nil
}

func (s *Server) handleUpcomingDoses(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := int(req.GetFloat("hours", 24))

	doses, err := s.reminders.Upcoming(s.userID, hours)
	if err != nil {
		return toolError("failed to list doses", err), nil
	}

	if len(doses) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No pending doses in the next %d hours.", hours)), nil
	}
	return jsonResult(doses), nil
}

func (s *Server) handleUpdateDose(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idFloat := req.GetFloat("log_id", -1)
	if idFloat < 1 {
		return mcp.NewToolResultError("log_id is required and must be a positive number"), nil
	}

	var update models.UpdateLogRequest
	if v := req.GetString("status", ""); v != "" {
		status := models.LogStatus(v)
		update.Status = &status
	}
	if v := req.GetString("notes", ""); v != "" {
		update.Notes = &v
	}
	if update.Status == nil && update.Notes == nil {
		return mcp.NewToolResultError("nothing to update: give status and/or notes"), nil
	}

	log, err := s.reminders.UpdateDose(s.userID, uint(idFloat), update)
	if err != nil {
		return toolError("failed to update dose", err), nil
	}
	return jsonResult(log), nil
}

func (s *Server) handleGenerateLogs(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idFloat := req.GetFloat("reminder_id", -1)
	if idFloat < 1 {
		return mcp.NewToolResultError("reminder_id is required and must be a positive number"), nil
	}
	days := int(req.GetFloat("days", 0))

	created, err := s.reminders.GenerateForReminder(s.userID, uint(idFloat), days)
	if err != nil {
		return toolError("failed to generate doses", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d new doses created.", created)), nil
}

func toolError(action string, err error) *mcp.CallToolResult {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return mcp.NewToolResultError(verr.Error())
	case errors.Is(err, services.ErrNotFound):
		return mcp.NewToolResultError(action + ": not found")
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	output, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(output))
}
