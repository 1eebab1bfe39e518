package rvgpu

import (
	"context"
	"runtime"

	"github.com/xgo-dev/rvgpu/nir"
	"golang.org/x/sync/errgroup"
)

// Job is one CompileAll input. Shader is compiled when set; otherwise Path
// is read with CompileFile.
type Job struct {
	Name   string
	Path   string
	Shader *nir.Shader
}

// Result pairs a job with its outcome.
type Result struct {
	Job    Job
	Object *Object
	Err    error
}

// CompileAll compiles jobs on Options.Jobs workers. Each worker keeps one
// OS thread, and so one cached compiler, for its whole life and releases it
// on exit. Per-job failures are reported in Result.Err; the returned error
// is only set when ctx is cancelled.
func CompileAll(ctx context.Context, jobs []Job, opt Options) ([]Result, error) {
	opt = opt.normalized()
	results := make([]Result, len(jobs))
	next := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(next)
		for i := range jobs {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case next <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(opt.Jobs, len(jobs))
	for range workers {
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			defer opt.Manager.ReleaseThread()
			for i := range next {
				results[i] = compileJob(jobs[i], opt)
			}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

func compileJob(job Job, opt Options) Result {
	res := Result{Job: job}
	if job.Shader != nil {
		res.Object, res.Err = Compile(job.Shader, opt)
	} else {
		res.Object, res.Err = CompileFile(job.Path, opt)
	}
	if res.Err != nil {
		Logger().Warn("compile failed", "job", job.Name, "err", res.Err)
	}
	return res
}
