// Package processing runs decoding work for bridge payloads off the
// rosbridge read loop.
package processing

import (
	"encoding/json"
	"sync"
	"time"

	customlog "github.com/open-teleop/dashboard/pkg/log"
)

// Job is one inbound payload waiting to be processed.
type Job struct {
	Topic    string
	Payload  json.RawMessage
	Received time.Time
	// Epoch identifies the subscription the payload arrived on so the
	// processor can discard work that outlived it.
	Epoch uint64
}

// Processor handles a single job on a worker goroutine.
type Processor func(job Job) error

// ProcessingPool is a bounded worker pool. When the queue is full the oldest
// queued job is discarded in favour of the new one.
type ProcessingPool struct {
	name         string
	workerCount  int
	logger       customlog.Logger
	messageQueue chan Job
	running      bool
	stopped      bool
	wg           sync.WaitGroup
	mu           sync.Mutex
	processor    Processor
	queueSize    int
	metrics      *PoolMetrics
}

// PoolMetrics tracks metrics for a processing pool
type PoolMetrics struct {
	ProcessedCount    int64
	ErrorCount        int64
	QueuedCount       int64
	DroppedCount      int64
	LastProcessedTime int64
	ProcessingTimeAvg int64 // in microseconds
	ProcessingTimeMax int64 // in microseconds
	mu                sync.Mutex
}

// NewProcessingPool creates a new processing pool
func NewProcessingPool(name string, workerCount int, queueSize int, logger customlog.Logger) *ProcessingPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &ProcessingPool{
		name:         name,
		workerCount:  workerCount,
		queueSize:    queueSize,
		logger:       logger,
		messageQueue: make(chan Job, queueSize),
		metrics:      &PoolMetrics{},
	}
}

// SetProcessor sets the job processor function
func (p *ProcessingPool) SetProcessor(processor Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processor = processor
}

// Submit queues job without blocking. It returns false if the pool is not
// running.
func (p *ProcessingPool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.logger.Debugf("%s pool not running, discarding %s message", p.name, job.Topic)
		return false
	}

	p.metrics.mu.Lock()
	p.metrics.QueuedCount++
	p.metrics.mu.Unlock()

	for {
		select {
		case p.messageQueue <- job:
			return true
		default:
		}
		select {
		case old := <-p.messageQueue:
			p.metrics.mu.Lock()
			p.metrics.DroppedCount++
			p.metrics.mu.Unlock()
			p.logger.Debugf("%s pool queue is full, discarding older %s message", p.name, old.Topic)
		default:
		}
	}
}

// Start starts the processing pool workers. A stopped pool cannot be
// restarted.
func (p *ProcessingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.stopped {
		return
	}

	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains the queue and waits for the workers to exit.
func (p *ProcessingPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	close(p.messageQueue)
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)
	p.wg.Wait()
	p.logMetrics()
}

func (p *ProcessingPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for job := range p.messageQueue {
		p.mu.Lock()
		processor := p.processor
		p.mu.Unlock()

		if processor == nil {
			p.logger.Errorf("No processor set for %s pool", p.name)
			continue
		}

		startTime := time.Now()
		err := processor(job)
		processingTime := time.Since(startTime).Microseconds()

		p.metrics.mu.Lock()
		p.metrics.ProcessedCount++
		p.metrics.LastProcessedTime = time.Now().UnixNano()
		if p.metrics.ProcessingTimeAvg == 0 {
			p.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > p.metrics.ProcessingTimeMax {
			p.metrics.ProcessingTimeMax = processingTime
		}
		if err != nil {
			p.metrics.ErrorCount++
		}
		p.metrics.mu.Unlock()

		if err != nil {
			p.logger.Warnf("Error processing %s message in %s pool: %v", job.Topic, p.name, err)
		}
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

// GetMetrics returns a copy of the current metrics
func (p *ProcessingPool) GetMetrics() PoolMetrics {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	return PoolMetrics{
		ProcessedCount:    p.metrics.ProcessedCount,
		ErrorCount:        p.metrics.ErrorCount,
		QueuedCount:       p.metrics.QueuedCount,
		DroppedCount:      p.metrics.DroppedCount,
		LastProcessedTime: p.metrics.LastProcessedTime,
		ProcessingTimeAvg: p.metrics.ProcessingTimeAvg,
		ProcessingTimeMax: p.metrics.ProcessingTimeMax,
	}
}

func (p *ProcessingPool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, dropped=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.DroppedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *ProcessingPool) GetName() string {
	return p.name
}

// GetQueueLength returns the current length of the message queue
func (p *ProcessingPool) GetQueueLength() int {
	return len(p.messageQueue)
}

// GetQueueCapacity returns the capacity of the message queue
func (p *ProcessingPool) GetQueueCapacity() int {
	return p.queueSize
}
