package batch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/config"
	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/queue"
)

// Worker consumes submission configs from a queue and runs them one at a
// time. One browser session exists at any moment; there is no handling
// overlap even when the backend delivers several messages at once.
type Worker struct {
	Queue    queue.Manager
	Dirs     *DirectoryManager
	Tracker  *Tracker
	Headless bool

	Process ProcessFunc
}

func NewWorker(q queue.Manager, dirs *DirectoryManager, tracker *Tracker, headless bool) *Worker {
	return &Worker{
		Queue:    q,
		Dirs:     dirs,
		Tracker:  tracker,
		Headless: headless,
		Process:  oprlm.Process,
	}
}

// Start receives until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	log.Println("Queue worker started, waiting for submissions...")
	for {
		select {
		case <-ctx.Done():
			log.Println("Queue worker stopping...")
			return
		default:
			messages, err := w.Queue.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("Error receiving submissions: %v", err)
				time.Sleep(time.Second)
				continue
			}
			for _, msg := range messages {
				w.handle(ctx, msg)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg queue.Message) {
	req, err := config.Parse([]byte(msg.Body))
	if err != nil {
		_ = w.Queue.Fail(ctx, msg, fmt.Sprintf("invalid submission config: %v", err))
		return
	}

	outDir, err := w.Dirs.PDBOutputDir(req.PDBID)
	if err != nil {
		_ = w.Queue.Fail(ctx, msg, err.Error())
		return
	}
	req.OutputDir = outDir

	log.Printf("Processing submission %s (%s)...", msg.ID, req.PDBID)
	result, procErr := w.Process(ctx, req, oprlm.ProcessOptions{Headless: w.Headless})
	w.Tracker.Record(req.PDBID, result)

	if sendErr := w.Queue.SendResult(ctx, result); sendErr != nil {
		log.Printf("Error publishing result for %s: %v", req.PDBID, sendErr)
		return
	}

	if procErr != nil {
		w.Tracker.LogError(req.PDBID, procErr.Error())
		_ = w.Queue.Fail(ctx, msg, procErr.Error())
		return
	}
	w.Tracker.LogSuccess(req.PDBID, result)
	if err := w.Queue.Ack(ctx, msg); err != nil {
		log.Printf("Error acknowledging submission %s: %v", msg.ID, err)
	}
}
