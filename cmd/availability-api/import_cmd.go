package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/availability-api/internal/dto"
	"github.com/noah-isme/availability-api/internal/models"
)

type importOptions struct {
	TenantID       string
	OrganizationID string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file.json> [--tenant <id>] [--organization <id>]",
		Short: "Bulk insert availability slots from a JSON file without conflict checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readBulkFile(args[0])
			if err != nil {
				return err
			}
			scope := models.Scope{TenantID: strings.TrimSpace(opts.TenantID)}
			if org := strings.TrimSpace(opts.OrganizationID); org != "" {
				scope.OrganizationID = &org
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			slots, err := a.slots.CreateBulk(cmd.Context(), scope, req)
			if err != nil {
				return err
			}
			a.logger.Info("import finished", zap.String("file", args[0]), zap.Int("inserted", len(slots)))
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d availability slots\n", len(slots))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant id; overrides tenantId in the file")
	cmd.Flags().StringVar(&opts.OrganizationID, "organization", "", "default organization id for items without one")
	return cmd
}

// readBulkFile accepts either {"tenantId":..,"items":[..]} or a bare array of items.
func readBulkFile(path string) (dto.BulkCreateAvailabilitySlotRequest, error) {
	var req dto.BulkCreateAvailabilitySlotRequest
	raw, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &req.Items); err != nil {
			return req, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(req.Items) == 0 {
		return req, errors.New("import file contains no items")
	}
	return req, nil
}
