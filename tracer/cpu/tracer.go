// Package cpu implements a tracer that renders frame blocks on a single
// goroutine. The renderer attaches one tracer per logical core.
package cpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/sahtrace/integrator"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/scene"
	"github.com/achilleasa/sahtrace/tracer"
	cpuinfo "github.com/shirou/gopsutil/v3/cpu"
)

type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateMu     sync.Mutex
	updateBuffer map[tracer.UpdateType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *tracer.Stats

	// Frame dims and the shared RGB accumulation buffer.
	frameW      uint32
	frameH      uint32
	accumBuffer []float32

	// Applied updates.
	sceneData *scene.Scene
	camera    *scene.Camera
	shader    integrator.Shader
}

// Create a new cpu tracer.
func NewTracer(id string) tracer.Tracer {
	return &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		blockReqChan: make(chan tracer.BlockRequest, 1),
		updateBuffer: make(map[tracer.UpdateType]interface{}),
		stats:        &tracer.Stats{},
	}
}

// Create one tracer per logical cpu core.
func NewTracerPool() ([]tracer.Tracer, error) {
	numCPU, err := cpuinfo.Counts(true)
	if err != nil {
		return nil, err
	}
	if numCPU < 1 {
		numCPU = 1
	}

	tracers := make([]tracer.Tracer, numCPU)
	for idx := range tracers {
		tracers[idx] = NewTracer(fmt.Sprintf("cpu-%d", idx))
	}
	return tracers, nil
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// All cpu tracers run a single worker so they share the same speed.
func (tr *cpuTracer) Speed() uint32 {
	return 1
}

// Initialize tracer and start its worker.
func (tr *cpuTracer) Init(frameW, frameH uint32, accumBuffer []float32) error {
	tr.Lock()
	defer tr.Unlock()

	if uint64(len(accumBuffer)) != uint64(frameW)*uint64(frameH)*3 {
		return ErrFrameSize
	}

	tr.frameW = frameW
	tr.frameH = frameH
	tr.accumBuffer = accumBuffer

	// Start worker
	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	// If the worker is running shut it down
	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
		tr.wg.Wait()
	}

	tr.accumBuffer = nil
	tr.sceneData = nil
	tr.camera = nil
}

// Enqueue block request.
func (tr *cpuTracer) Enqueue(blockReq tracer.BlockRequest) {
	tr.Lock()
	running := tr.closeChan != nil
	tr.Unlock()

	if !running {
		blockReq.ErrChan <- ErrNotInitialized
		return
	}

	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is still processing a queued request
		tr.logger.Error("request processor did not receive block request")
		blockReq.ErrChan <- ErrBusy
	}
}

// Append a change to the tracer's update buffer.
func (tr *cpuTracer) Update(updateType tracer.UpdateType, data interface{}) {
	tr.updateMu.Lock()
	tr.updateBuffer[updateType] = data
	tr.updateMu.Unlock()
}

// Retrieve last block statistics.
func (tr *cpuTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Commit queued changes.
func (tr *cpuTracer) commitUpdates() error {
	tr.updateMu.Lock()
	defer tr.updateMu.Unlock()

	for updateType, data := range tr.updateBuffer {
		switch updateType {
		case tracer.UpdateScene:
			tr.sceneData = data.(*scene.Scene)
		case tracer.UpdateCamera:
			tr.camera = data.(*scene.Camera)
		case tracer.UpdateShader:
			tr.shader = data.(integrator.Shader)
		default:
			return fmt.Errorf("unsupported update type %d", updateType)
		}
	}

	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	return nil
}

// Spawn a go-routine to process block render requests.
func (tr *cpuTracer) startWorker() {
	closeChan := make(chan struct{})
	tr.closeChan = closeChan
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq tracer.BlockRequest
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				// Apply any pending changes
				if err = tr.commitUpdates(); err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Render block and reply with our completion status
				startTime := time.Now()
				if err = tr.renderBlock(&blockReq); err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)

				blockReq.DoneChan <- blockReq.BlockH
			case <-closeChan:
				// Ack close
				closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render block. Each pixel receives SamplesPerPixel jittered camera rays
// whose radiance is added to the accumulation buffer.
func (tr *cpuTracer) renderBlock(blockReq *tracer.BlockRequest) error {
	switch {
	case tr.sceneData == nil:
		return ErrNoSceneData
	case tr.camera == nil:
		return ErrNoCamera
	case tr.shader == nil:
		return ErrNoShader
	case blockReq.BlockY+blockReq.BlockH > tr.frameH:
		return fmt.Errorf("cpu tracer: block [%d, %d) exceeds frame height %d", blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, tr.frameH)
	}

	rng := integrator.NewRandom(blockReq.Seed)
	sampler := integrator.NewSampler(tr.sceneData, rng)
	if sampler == nil {
		return ErrNoAccel
	}

	var primaryRays uint64
	for y := blockReq.BlockY; y < blockReq.BlockY+blockReq.BlockH; y++ {
		for x := uint32(0); x < tr.frameW; x++ {
			offset := 3 * (y*tr.frameW + x)
			for s := uint32(0); s < blockReq.SamplesPerPixel; s++ {
				ray := tr.camera.GenerateRay(float32(x)+rng.Float32(), float32(y)+rng.Float32())
				radiance := tr.shader.Radiance(sampler, ray)
				tr.accumBuffer[offset] += radiance[0]
				tr.accumBuffer[offset+1] += radiance[1]
				tr.accumBuffer[offset+2] += radiance[2]
			}
			primaryRays += uint64(blockReq.SamplesPerPixel)
		}
	}

	tr.stats.PrimaryRays = primaryRays
	tr.stats.NodesVisited = uint64(sampler.Stack.NodesVisited)
	return nil
}
