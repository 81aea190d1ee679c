package ffmpeg

import (
	"bufio"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	pkg "github.com/frankamera/frankamera/pkg/ffmpeg"
	"github.com/frankamera/frankamera/pkg/shell"
	"github.com/google/uuid"
)

const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// Job - one ffmpeg download of a DVR playback stream into an mp4 file.
type Job struct {
	ID       string     `json:"job_id"`
	URI      string     `json:"uri"`
	Started  *time.Time `json:"start,omitempty"`
	Duration float64    `json:"duration"` // seconds
	Status   string     `json:"status"`
	Progress float64    `json:"progress"` // percent 0-100
	Error    string     `json:"error,omitempty"`

	output string
	seq    int
}

var ErrQueueFull = errors.New("ffmpeg: download queue full")

// Download queues a new job and returns its id.
func Download(uri string, duration time.Duration) (string, error) {
	job := &Job{
		ID:       uuid.NewString(),
		URI:      uri,
		Duration: duration.Seconds(),
		Status:   StatusPending,
	}
	job.output = filepath.Join(dir, job.ID+".mp4")

	mu.Lock()
	jobSeq++
	job.seq = jobSeq
	jobs[job.ID] = job
	mu.Unlock()

	select {
	case queue <- job:
	default:
		mu.Lock()
		delete(jobs, job.ID)
		mu.Unlock()
		return "", ErrQueueFull
	}

	notify(job)

	return job.ID, nil
}

// Jobs returns snapshots of all known jobs in creation order.
func Jobs() []Job {
	mu.Lock()
	defer mu.Unlock()

	list := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		list = append(list, *job)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	return list
}

// Get returns a snapshot of one job.
func Get(id string) (Job, bool) {
	mu.Lock()
	defer mu.Unlock()

	job, ok := jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// File returns the output path of a finished job.
func File(id string) (string, error) {
	job, ok := Get(id)
	if !ok {
		return "", errors.New("ffmpeg: unknown job")
	}
	if job.Status != StatusDone {
		return "", errors.New("ffmpeg: job not finished")
	}
	return job.output, nil
}

// OnChange registers a listener for job snapshots. Fires on every state
// or progress change. The returned func unsubscribes; an in-flight
// notification may still deliver once after it returns.
func OnChange(f func(Job)) (unsubscribe func()) {
	mu.Lock()
	listenerSeq++
	id := listenerSeq
	listeners[id] = f
	mu.Unlock()

	return func() {
		mu.Lock()
		delete(listeners, id)
		mu.Unlock()
	}
}

// internal

var (
	mu          sync.Mutex
	jobs        = map[string]*Job{}
	jobSeq      int
	listeners   = map[int]func(Job){}
	listenerSeq int
	queue       chan *Job
)

func initPool(workers int) {
	queue = make(chan *Job, 64)
	for i := 0; i < workers; i++ {
		go worker()
	}
}

func worker() {
	for job := range queue {
		run(job)
	}
}

func notify(job *Job) {
	mu.Lock()
	snapshot := *job
	fns := make([]func(Job), 0, len(listeners))
	for _, f := range listeners {
		fns = append(fns, f)
	}
	mu.Unlock()

	for _, f := range fns {
		f(snapshot)
	}
}

func run(job *Job) {
	// bin may carry extra flags, e.g. "ffmpeg -threads 2"
	parts := shell.QuoteSplit(bin)
	if parts == nil {
		fail(job, errors.New("ffmpeg: invalid bin: "+bin))
		return
	}

	args := append(parts, pkg.DownloadArgs(job.URI, job.output)...)
	cmd := exec.Command(args[0], args[1:]...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		fail(job, err)
		return
	}

	if err = cmd.Start(); err != nil {
		fail(job, err)
		return
	}

	now := time.Now()
	mu.Lock()
	job.Status = StatusRunning
	job.Started = &now
	mu.Unlock()
	notify(job)

	log.Debug().Str("job", job.ID).Str("uri", job.URI).Msg("[ffmpeg] start")

	duration := time.Duration(job.Duration * float64(time.Second))
	var interrupted bool

	// ffmpeg writes status lines to stderr with \r endings
	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanLines)
	for scanner.Scan() {
		progress := pkg.ParseProgress(scanner.Text())
		if progress == nil {
			continue
		}

		clock, ok := pkg.ParseClock(progress["time"])
		if !ok {
			continue
		}

		percent := 100.0
		if duration > 0 && clock < duration {
			percent = float64(clock) / float64(duration) * 100
		}

		mu.Lock()
		job.Progress = percent
		mu.Unlock()
		notify(job)

		// DVR playback streams may keep going past the requested
		// range, stop once enough video was copied
		if clock > duration && !interrupted {
			interrupted = true
			_ = cmd.Process.Signal(os.Interrupt)

			go func(p *os.Process) {
				time.Sleep(10 * time.Second)
				_ = p.Kill()
			}(cmd.Process)
		}
	}

	if err = cmd.Wait(); err != nil && !interrupted {
		fail(job, err)
		return
	}

	mu.Lock()
	job.Status = StatusDone
	job.Progress = 100
	mu.Unlock()
	notify(job)

	log.Debug().Str("job", job.ID).Msg("[ffmpeg] done")
}

func fail(job *Job, err error) {
	mu.Lock()
	job.Status = StatusError
	job.Error = err.Error()
	mu.Unlock()
	notify(job)

	log.Error().Err(err).Str("job", job.ID).Msg("[ffmpeg] job")
}

// scanLines splits on \n and \r, ffmpeg uses \r for status updates
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
