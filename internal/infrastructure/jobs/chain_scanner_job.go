package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"winmore.backend/pkg/logger"
)

// chainScanner is the slice of the scanner usecase the job drives.
type chainScanner interface {
	ChainIDs() []int64
	ScanChain(ctx context.Context, chainID int64) error
}

// ChainScannerJob periodically sweeps every configured chain for deposits.
// Each chain is scanned on its own goroutine per tick; the scanner itself
// skips a chain whose previous sweep is still running.
type ChainScannerJob struct {
	scanner  chainScanner
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewChainScannerJob creates a new deposit scanning job
func NewChainScannerJob(scanner chainScanner, interval time.Duration) *ChainScannerJob {
	return &ChainScannerJob{
		scanner:  scanner,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the periodic scanning loop. It returns immediately; the loop
// runs until Stop is called or the context is cancelled.
func (j *ChainScannerJob) Start(ctx context.Context) {
	go j.run(ctx)
}

func (j *ChainScannerJob) run(ctx context.Context) {
	defer close(j.doneCh)

	logger.Info(ctx, "Chain scanner job started",
		zap.Duration("interval", j.interval),
		zap.Int("chains", len(j.scanner.ChainIDs())))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// first sweep right away rather than one interval in
	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Chain scanner job stopping: context cancelled")
			return
		case <-j.stopCh:
			logger.Info(ctx, "Chain scanner job stopping")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *ChainScannerJob) sweep(ctx context.Context) {
	var wg sync.WaitGroup
	for _, chainID := range j.scanner.ChainIDs() {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := j.scanner.ScanChain(ctx, id); err != nil {
				logger.Error(ctx, "Chain sweep failed",
					zap.Int64("chainId", id),
					zap.Error(err))
			}
		}(chainID)
	}
	wg.Wait()
}

// Stop signals the loop to exit and waits for the in-flight sweep to finish.
func (j *ChainScannerJob) Stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}
