package cli

import (
	"errors"
	"fmt"
	"log"
	"os"
	"pharmacist/internal/database"
	"pharmacist/internal/mcptools"
	"pharmacist/internal/models"
	"pharmacist/internal/services"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var mcpUserID uint

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve one user's medications and doses as MCP tools over stdio",
	Long: `Starts an MCP server on stdin/stdout exposing the tools
list_medications, upcoming_doses, update_dose and generate_logs for one user.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().UintVar(&mcpUserID, "user", 0, "ID of the user whose data the tools operate on")
	_ = mcpCmd.MarkFlagRequired("user")
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg, err := setup()
	if err != nil {
		return err
	}

	var user models.User
	if err := database.GetDB().First(&user, mcpUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d not found", mcpUserID)
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	s := mcptools.NewServer(services.NewMedicationService(), services.NewReminderService(cfg), user.ID)
	if err := server.ServeStdio(s.MCPServer()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
