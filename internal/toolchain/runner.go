package toolchain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/phobologic/abuild/internal/lang"
)

// Job is one compiler invocation.
type Job struct {
	// Key identifies the job in results and errors, usually the source or
	// entry path.
	Key      string
	Compiler lang.CompilerInfo
	Args     []string
	Output   string
	Dir      string
}

// Command returns the job's command line for display.
func (j Job) Command() []string {
	return append([]string{j.Compiler.Executable()}, j.Args...)
}

// Result is the outcome of a job that ran.
type Result struct {
	Job      Job
	Output   []byte
	Duration time.Duration
	Err      error
}

// Runner executes jobs on a bounded worker pool.
type Runner struct {
	// Jobs is the number of workers. Zero means runtime.GOMAXPROCS(0).
	Jobs int
	// Timeout bounds each job. Zero means no limit.
	Timeout time.Duration
	Logger  *slog.Logger
	// OnResult, if set, is called once per finished job from a single
	// goroutine.
	OnResult func(Result)
}

// Run executes jobs and returns the results of the jobs that ran, sorted
// by key. Failed jobs carry a *CompileError and are also joined into the
// returned error. If ctx is cancelled, no further jobs are started, jobs
// already running are allowed to finish, and the error wraps ErrCancelled.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	numWorkers := r.Jobs
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	work := make(chan int, len(jobs))
	results := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				results <- r.run(ctx, jobs[idx])
			}
		}()
	}

	for i := range jobs {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		done []Result
		errs []error
	)
	for res := range results {
		if r.OnResult != nil {
			r.OnResult(res)
		}
		done = append(done, res)
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	slices.SortFunc(done, func(a, b Result) int { return cmp.Compare(a.Job.Key, b.Job.Key) })

	if len(done) < len(jobs) {
		errs = append([]error{ErrCancelled}, errs...)
	}
	return done, errors.Join(errs...)
}

func (r *Runner) run(ctx context.Context, job Job) Result {
	// Running compilers outlive ctx; only Timeout stops them.
	execCtx := context.WithoutCancel(ctx)
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(execCtx, r.Timeout)
		defer cancel()
	}

	res := Result{Job: job}
	if job.Output != "" {
		if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
			res.Err = &CompileError{Path: job.Key, Err: err}
			return res
		}
	}

	cmd := exec.CommandContext(execCtx, job.Compiler.Executable(), job.Args...)
	cmd.Dir = job.Dir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	res.Duration = time.Since(start)
	res.Output = out

	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", r.Timeout, context.DeadlineExceeded)
		}
		res.Err = &CompileError{Path: job.Key, Output: string(out), Err: err}
	}

	r.logger().Debug("compiled", "key", job.Key, "compiler", job.Compiler.Executable(),
		"duration", res.Duration, "ok", res.Err == nil)
	return res
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
