package mcp_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
)

func (tm *ToolManager) registerBackupTools(reg registerFunc) error {
	if err := reg("create_backup", tm.createBackupTool(), tm.createBackupHandler); err != nil {
		return err
	}
	if err := reg("list_backups", tm.listBackupsTool(), tm.listBackupsHandler); err != nil {
		return err
	}
	if err := reg("restore_backup", tm.restoreBackupTool(), tm.restoreBackupHandler); err != nil {
		return err
	}
	if err := reg("migrate_file_naming", tm.migrateFileNamingTool(), tm.migrateFileNamingHandler); err != nil {
		return err
	}
	return nil
}

func (tm *ToolManager) createBackupTool() *protocol.Tool {
	tool, err := protocol.NewTool("create_backup", `Copy the active store's full contents into a timestamped backup directory.`, CreateBackupInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "create_backup", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) createBackupHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input CreateBackupInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	id, err := h.Docs.Backup(input.BackupDir)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"backupId": id})), nil
}

func (tm *ToolManager) listBackupsTool() *protocol.Tool {
	tool, err := protocol.NewTool("list_backups", `List the active store's backups, newest first.`, ListBackupsInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "list_backups", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) listBackupsHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	ids, err := h.Docs.ListBackups()
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"backups": ids})), nil
}

func (tm *ToolManager) restoreBackupTool() *protocol.Tool {
	tool, err := protocol.NewTool("restore_backup", `Replace the active store's contents with a named backup, by default backing up the current state first.`, RestoreBackupInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "restore_backup", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) restoreBackupHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var input RestoreBackupInput
	if err := json.Unmarshal(request.RawArguments, &input); err != nil {
		return nil, fmt.Errorf(errParseArgs, err)
	}

	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	createPreRestore := true
	if input.CreatePreRestoreBackup != nil {
		createPreRestore = *input.CreatePreRestoreBackup
	}

	result, err := h.Docs.Restore(input.BackupID, createPreRestore)
	if err != nil {
		return errorResult(err), nil
	}

	// The graph store's in-memory state was folded from the log before the
	// restore; reopen it so subsequent reads reflect the restored log.
	if err := tm.sessions.Close(h.Root); err != nil {
		return errorResult(err), nil
	}
	if _, err := tm.sessions.Initialize(h.Root); err != nil {
		return errorResult(err), nil
	}

	return textResult(MarshalTOON(map[string]interface{}{
		"restoredFiles":      result.RestoredFiles,
		"preRestoreBackupId": result.PreRestoreBackupID,
	})), nil
}

func (tm *ToolManager) migrateFileNamingTool() *protocol.Tool {
	tool, err := protocol.NewTool("migrate_file_naming", `Rename legacy camelCase document filenames in the active store to their canonical kebab-case form.`, MigrateFileNamingInput{})
	if err != nil {
		slog.Error("failed to create tool", "name", "migrate_file_naming", "err", err)
		return nil
	}
	return tool
}

func (tm *ToolManager) migrateFileNamingHandler(ctx context.Context, request *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	h, err := tm.sessions.Active()
	if err != nil {
		return errorResult(err), nil
	}

	renamed, err := h.Docs.MigrateFileNaming()
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(MarshalTOON(map[string]interface{}{"renamed": renamed})), nil
}
