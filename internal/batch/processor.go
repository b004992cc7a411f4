// internal/batch/processor.go - Batch rendering implementation
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/valpere/annotation_tiler/internal/metrics"
	"github.com/valpere/annotation_tiler/internal/output"
	"github.com/valpere/annotation_tiler/internal/tile"
)

// BatchProcessor renders tile ranges concurrently and hands the results to
// a writer. Multi-file jobs are written chunk by chunk; single-file jobs are
// written once at the end so the output stays one document.
type BatchProcessor struct {
	renderer    *tile.Renderer
	writer      output.Writer
	reporter    ProgressReporter
	concurrency int
	mutex       sync.RWMutex
}

// NewBatchProcessor creates a new batch processor with the specified components
func NewBatchProcessor(renderer *tile.Renderer, writer output.Writer, reporter ProgressReporter) *BatchProcessor {
	return &BatchProcessor{
		renderer:    renderer,
		writer:      writer,
		reporter:    reporter,
		concurrency: 10,
	}
}

// Process executes a complete batch rendering job. Tile failures are
// recorded on the job; they only fail the call when FailOnError is set.
func (bp *BatchProcessor) Process(ctx context.Context, job *Job) error {
	if job.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Config.Timeout)
		defer cancel()
	}

	bp.mutex.Lock()
	bp.concurrency = job.Config.Concurrency
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Progress.StartTime = now
	bp.mutex.Unlock()

	if bp.reporter != nil {
		bp.reporter.ReportProgress(job)
	}

	workItems, err := generateWorkItems(job.TileRanges, job.Config.ChunkSize)
	if err != nil {
		bp.completeJobWithError(job, fmt.Errorf("failed to generate work items: %w", err))
		return err
	}

	chunkSize := job.Config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(workItems)
	}

	bp.mutex.Lock()
	job.Progress.TotalTiles = int64(len(workItems))
	if chunkSize > 0 {
		job.Progress.TotalChunks = (len(workItems) + chunkSize - 1) / chunkSize
	}
	bp.mutex.Unlock()

	var (
		failures error
		pending  []*tile.ProcessedTile
	)

	for chunkStart := 0; chunkStart < len(workItems); chunkStart += chunkSize {
		if err := ctx.Err(); err != nil {
			bp.completeJobWithError(job, err)
			return err
		}

		chunkEnd := chunkStart + chunkSize
		if chunkEnd > len(workItems) {
			chunkEnd = len(workItems)
		}
		chunk := workItems[chunkStart:chunkEnd]

		bp.mutex.Lock()
		job.Progress.CurrentChunk = chunk[0].ChunkID + 1
		bp.mutex.Unlock()

		chunkResult, tiles := bp.renderChunk(ctx, chunk, job.Config.SkipEmpty)

		for _, result := range chunkResult.Results {
			if result.Error == nil {
				continue
			}
			failures = multierr.Append(failures, fmt.Errorf("tile %s: %w", result.Item.Coordinate, result.Error))
		}

		if chunkResult.FailureCount > 0 && job.Config.FailOnError {
			bp.updateJobProgress(job, chunkResult)
			err := fmt.Errorf("chunk %d failed: %w", chunkResult.ChunkID, failures)
			bp.completeJobWithError(job, err)
			return err
		}

		if job.Config.MultiFile {
			if err := bp.write(tiles); err != nil {
				bp.completeJobWithError(job, err)
				return err
			}
		} else {
			pending = append(pending, tiles...)
		}

		bp.updateJobProgress(job, chunkResult)

		if bp.reporter != nil {
			bp.reporter.ReportChunkComplete(job, chunkResult)
		}
	}

	if !job.Config.MultiFile {
		if err := bp.write(pending); err != nil {
			bp.completeJobWithError(job, err)
			return err
		}
	}

	bp.completeJobSuccessfully(job, failures)

	if bp.reporter != nil {
		bp.reporter.ReportJobComplete(job)
	}

	return nil
}

// ProcessChunk renders and writes a chunk of work items
func (bp *BatchProcessor) ProcessChunk(ctx context.Context, workItems []*WorkItem) (*ChunkResult, error) {
	chunkResult, tiles := bp.renderChunk(ctx, workItems, false)
	if err := bp.write(tiles); err != nil {
		return chunkResult, err
	}
	return chunkResult, nil
}

// renderChunk renders work items concurrently. Results keep the order of
// the work items. Tiles to be written are returned separately, without
// empty tiles when skipEmpty is set.
func (bp *BatchProcessor) renderChunk(ctx context.Context, workItems []*WorkItem, skipEmpty bool) (*ChunkResult, []*tile.ProcessedTile) {
	start := time.Now()
	results := make([]*WorkResult, len(workItems))

	bp.mutex.RLock()
	concurrency := bp.concurrency
	bp.mutex.RUnlock()
	if concurrency <= 0 {
		concurrency = 1
	}

	p := pool.New().WithMaxGoroutines(concurrency)
	for i, item := range workItems {
		p.Go(func() {
			results[i] = bp.renderWorkItem(ctx, item)
		})
	}
	p.Wait()

	chunkResult := &ChunkResult{
		Results:  results,
		Duration: time.Since(start),
	}
	if len(workItems) > 0 {
		chunkResult.ChunkID = workItems[0].ChunkID
	}

	tiles := make([]*tile.ProcessedTile, 0, len(results))
	for _, result := range results {
		if result.Error != nil {
			chunkResult.FailureCount++
			metrics.BatchFailuresTotal.Inc()
			continue
		}

		chunkResult.SuccessCount++
		if result.Tile.Metadata.Empty {
			chunkResult.EmptyCount++
			if skipEmpty {
				continue
			}
		}
		tiles = append(tiles, result.Tile)
	}

	return chunkResult, tiles
}

// renderWorkItem renders a single work item
func (bp *BatchProcessor) renderWorkItem(ctx context.Context, item *WorkItem) *WorkResult {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return &WorkResult{Item: item, Error: err}
	}

	processed, err := bp.renderer.Render(ctx, item.Coordinate)
	if err != nil {
		return &WorkResult{
			Item:     item,
			Error:    err,
			Duration: time.Since(start),
		}
	}

	return &WorkResult{
		Item:     item,
		Tile:     processed,
		Duration: time.Since(start),
	}
}

// Result summarizes a finished job. Close the writer first so the byte
// count includes buffered output.
func (bp *BatchProcessor) Result(job *Job) *output.BatchWriteResult {
	bp.mutex.RLock()
	defer bp.mutex.RUnlock()

	result := &output.BatchWriteResult{
		TotalTiles:   int(job.Progress.TotalTiles),
		SuccessTiles: int(job.Progress.SuccessTiles),
		FailedTiles:  int(job.Progress.FailedTiles),
		BytesWritten: bp.writer.BytesWritten(),
		Errors:       multierr.Errors(job.Error),
	}
	if job.Config.SkipEmpty {
		result.SkippedTiles = int(job.Progress.EmptyTiles)
	}
	if job.StartedAt != nil {
		end := time.Now()
		if job.CompletedAt != nil {
			end = *job.CompletedAt
		}
		result.Duration = end.Sub(*job.StartedAt)
	}
	return result
}

func (bp *BatchProcessor) write(tiles []*tile.ProcessedTile) error {
	if len(tiles) == 0 {
		return nil
	}
	if err := bp.writer.WriteBatch(tiles); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	return nil
}

// generateWorkItems expands tile ranges into work items assigned to chunks
func generateWorkItems(tileRanges []*tile.TileRange, chunkSize int) ([]*WorkItem, error) {
	var workItems []*WorkItem
	itemID := 0

	for _, tileRange := range tileRanges {
		for _, coord := range tileRange.Coordinates() {
			if err := tile.ValidateCoordinates(coord.Z, coord.X, coord.Y); err != nil {
				return nil, fmt.Errorf("invalid tile coordinates %s: %w", coord, err)
			}

			chunkID := 0
			if chunkSize > 0 {
				chunkID = itemID / chunkSize
			}
			workItems = append(workItems, NewWorkItem(coord, chunkID, itemID))
			itemID++
		}
	}

	return workItems, nil
}

// updateJobProgress updates job progress based on chunk results
func (bp *BatchProcessor) updateJobProgress(job *Job, chunkResult *ChunkResult) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	job.Progress.ProcessedTiles += int64(len(chunkResult.Results))
	job.Progress.SuccessTiles += int64(chunkResult.SuccessCount)
	job.Progress.FailedTiles += int64(chunkResult.FailureCount)
	job.Progress.EmptyTiles += int64(chunkResult.EmptyCount)
	job.Progress.UpdateThroughput()

	estimatedEnd := job.Progress.EstimateCompletion()
	job.Progress.EstimatedEnd = &estimatedEnd
}

// completeJobSuccessfully marks the job as completed, keeping any tile
// failures on the job
func (bp *BatchProcessor) completeJobSuccessfully(job *Job, failures error) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	job.Status = JobStatusCompleted
	job.Error = failures
	now := time.Now()
	job.CompletedAt = &now
}

// completeJobWithError marks the job as failed
func (bp *BatchProcessor) completeJobWithError(job *Job, err error) {
	bp.mutex.Lock()
	job.Status = JobStatusFailed
	if errors.Is(err, context.Canceled) {
		job.Status = JobStatusCanceled
	}
	job.Error = err
	now := time.Now()
	job.CompletedAt = &now
	bp.mutex.Unlock()

	if bp.reporter != nil {
		bp.reporter.ReportJobFailed(job, err)
	}
}
