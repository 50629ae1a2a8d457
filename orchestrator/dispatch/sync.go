package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vasanthadithya-mundrathi/NACC/node"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/audit"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/planner"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

// FileTransfer is one file's outcome within a target's SyncReport.
type FileTransfer struct {
	RelativePath string `json:"relative_path"`
	Action       string `json:"action"`
	BytesCopied  int64  `json:"bytes_copied,omitempty"`
	SHA256Before string `json:"sha256_before,omitempty"`
	SHA256After  string `json:"sha256_after,omitempty"`
}

// SyncReport is one target node's outcome from a cross-node sync,
// grounded on spec.md §3/§4.1's requirement for bytes transferred,
// file count, and per-file sha256 before/after.
type SyncReport struct {
	FilesCopied  int            `json:"files_copied"`
	FilesDeleted int            `json:"files_deleted"`
	BytesCopied  int64          `json:"bytes_copied"`
	Transfers    []FileTransfer `json:"transfers,omitempty"`
}

// CrossNodeSync implements spec.md §3/§4.1's directory-tree Mirror/
// Append/DryRun transfer: the node exposes only ListFiles/ReadFile/
// WriteFile, so cross-node transfer is orchestrated entirely here — one
// recursive, hashed ListFiles on the source, one per target, and a diff
// that creates, overwrites, or (Mirror and DryRun) deletes to converge
// the target tree with the source tree. Already-identical files are
// skipped so that re-running Mirror against a converged target is a
// no-op, per spec.md §8's idempotence law. DryRun computes the same
// diff but never calls ReadFile/WriteFile, per spec.md:65's "DryRun
// returns the plan without touching the filesystem".
func CrossNodeSync(ctx context.Context, reg *registry.Registry, plan planner.SyncPlan, sourcePath string, auditLogger *audit.Logger) ([]Result[SyncReport], error) {
	sourceDef, ok := reg.Definition(plan.SourceNode)
	if !ok {
		return nil, fmt.Errorf("unknown source node: %s", plan.SourceNode)
	}

	listCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	sourceList, err := sourceDef.Transport.ListFiles(listCtx, node.ListFilesRequest{
		Path: sourcePath, Recursive: true, WithHash: true,
	})
	cancel()
	recordToolAudit(auditLogger, audit.ActionListFiles, plan.SourceNode, sourcePath, err)
	if err != nil {
		return nil, err
	}

	results := make([]Result[SyncReport], len(plan.TargetNodes))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(len(plan.TargetNodes))

	for i, targetID := range plan.TargetNodes {
		index, id := i, targetID
		eg.Go(func() error {
			results[index] = syncTarget(egCtx, reg, id, sourceDef.Transport, plan.SourceNode, sourcePath, plan.Strategy, sourceList.Files, auditLogger)
			return nil
		})
	}
	// Per-target failures are captured in results, never propagated as a
	// group failure — one unreachable target must not abort the others.
	_ = eg.Wait()
	return results, nil
}

func syncTarget(ctx context.Context, reg *registry.Registry, targetID string, sourceTransport registry.Transport, sourceNodeID, sourcePath, strategy string, sourceEntries []node.FileEntry, auditLogger *audit.Logger) Result[SyncReport] {
	def, ok := reg.Definition(targetID)
	if !ok {
		return Result[SyncReport]{NodeID: targetID, Err: fmt.Errorf("unknown target node: %s", targetID)}
	}

	report, err := syncOneTarget(ctx, sourceTransport, def.Transport, sourceNodeID, targetID, sourcePath, strategy, sourceEntries, auditLogger)
	if err != nil {
		return Result[SyncReport]{NodeID: targetID, Value: report, Err: err, TimedOut: ctx.Err() != nil}
	}
	return Result[SyncReport]{NodeID: targetID, Value: report}
}

// syncOneTarget lists the target's copy of the same subtree, diffs it
// against sourceEntries, and converges it according to strategy.
func syncOneTarget(ctx context.Context, sourceTransport, targetTransport registry.Transport, sourceNodeID, targetNodeID, sourcePath, strategy string, sourceEntries []node.FileEntry, auditLogger *audit.Logger) (SyncReport, error) {
	report := SyncReport{}

	targetListCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	targetList, err := targetTransport.ListFiles(targetListCtx, node.ListFilesRequest{
		Path: sourcePath, Recursive: true, WithHash: true,
	})
	cancel()
	recordToolAudit(auditLogger, audit.ActionListFiles, targetNodeID, sourcePath, err)

	targetByPath := map[string]node.FileEntry{}
	if err == nil {
		for _, entry := range targetList.Files {
			if !entry.IsDir {
				targetByPath[entry.RelativePath] = entry
			}
		}
	}

	sourceByPath := make(map[string]bool, len(sourceEntries))
	for _, entry := range sourceEntries {
		if entry.IsDir {
			continue
		}
		sourceByPath[entry.RelativePath] = true

		targetEntry, exists := targetByPath[entry.RelativePath]
		if strategy == "Append" && exists {
			continue
		}
		if exists && entry.SHA256 != "" && targetEntry.SHA256 == entry.SHA256 {
			continue
		}

		before := ""
		action := "create"
		if exists {
			before = targetEntry.SHA256
			action = "update"
		}

		if strategy == "DryRun" {
			report.FilesCopied++
			report.BytesCopied += entry.SizeBytes
			report.Transfers = append(report.Transfers, FileTransfer{
				RelativePath: entry.RelativePath,
				Action:       action,
				BytesCopied:  entry.SizeBytes,
				SHA256Before: before,
				SHA256After:  entry.SHA256,
			})
			continue
		}

		read, err := sourceTransport.ReadFile(ctx, node.ReadFileRequest{Path: entry.RelativePath, Encoding: "binary"})
		recordToolAudit(auditLogger, audit.ActionReadFile, sourceNodeID, entry.RelativePath, err)
		if err != nil {
			return report, err
		}

		write, err := targetTransport.WriteFile(ctx, node.WriteFileRequest{
			Path: entry.RelativePath, Content: read.Content, Encoding: "binary", Overwrite: true,
		})
		recordToolAudit(auditLogger, audit.ActionWriteFile, targetNodeID, entry.RelativePath, err)
		if err != nil {
			return report, err
		}

		report.FilesCopied++
		report.BytesCopied += read.Size
		report.Transfers = append(report.Transfers, FileTransfer{
			RelativePath: entry.RelativePath,
			Action:       action,
			BytesCopied:  read.Size,
			SHA256Before: before,
			SHA256After:  write.SHA256,
		})
	}

	if strategy == "Mirror" || strategy == "DryRun" {
		for relPath, entry := range targetByPath {
			if sourceByPath[relPath] {
				continue
			}

			if strategy == "DryRun" {
				report.FilesDeleted++
				report.Transfers = append(report.Transfers, FileTransfer{
					RelativePath: relPath,
					Action:       "delete",
					SHA256Before: entry.SHA256,
				})
				continue
			}

			_, err := targetTransport.WriteFile(ctx, node.WriteFileRequest{Path: relPath, Delete: true})
			recordToolAudit(auditLogger, audit.ActionWriteFile, targetNodeID, relPath, err)
			if err != nil {
				return report, err
			}
			report.FilesDeleted++
			report.Transfers = append(report.Transfers, FileTransfer{
				RelativePath: relPath,
				Action:       "delete",
				SHA256Before: entry.SHA256,
			})
		}
	}

	return report, nil
}

func recordToolAudit(logger *audit.Logger, action audit.Action, target, path string, err error) {
	if logger == nil {
		return
	}
	success := err == nil
	message := ""
	if err != nil {
		message = err.Error()
	}
	logger.Record("system", action, target, "", success, message, map[string]any{"path": path})
}
