// Command gfload drives concurrent GETFILE downloads against a proxy:
// a fixed set of worker threads each pop request paths from a shared
// workload queue and download them with their own gfclient.Client,
// writing each result to a file named after the worker that fetched it.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"github.com/jonnybach/low-level-file-server/internal/logger"
	"github.com/jonnybach/low-level-file-server/pkg/config"
	"github.com/jonnybach/low-level-file-server/pkg/getfile"
	"github.com/jonnybach/low-level-file-server/pkg/gfclient"
	"github.com/jonnybach/low-level-file-server/pkg/workqueue"
)

func main() {
	fs := pflag.NewFlagSet("gfload", pflag.ExitOnError)
	fs.StringP("server", "s", "localhost", "proxy host")
	fs.IntP("port", "p", 8888, "proxy port")
	fs.StringP("workload", "w", "workload.txt", "path to a newline-delimited list of request paths")
	fs.IntP("workers", "t", 1, "worker threads")
	fs.IntP("num_requests", "n", 1, "requests issued per thread")
	help := fs.BoolP("help", "h", false, "show usage")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if *help {
		fmt.Fprintln(os.Stderr, "usage: gfload [-s server] [-p port] [-w workload] [-t workers] [-n num_requests] [-h]")
		os.Exit(0)
	}

	cfg, err := config.LoadLoadConfig(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gfload: config error:", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		fmt.Fprintln(os.Stderr, "gfload: logger init failed:", err)
		os.Exit(1)
	}

	paths, err := readWorkload(cfg.WorkloadPath)
	if err != nil {
		logger.Error("gfload: reading workload failed", "path", cfg.WorkloadPath, "error", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		logger.Error("gfload: workload is empty", "path", cfg.WorkloadPath)
		os.Exit(1)
	}

	queue := workqueue.New[string]()
	total := cfg.Workers * cfg.NumRequest
	for i := 0; i < total; i++ {
		queue.Submit(paths[i%len(paths)])
	}
	queue.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, failed int

	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		workerID := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(workerID, cfg.ServerHost, cfg.ServerPort, queue, &mu, &succeeded, &failed)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	logger.Info("gfload: done", "requests", total, "succeeded", succeeded, "failed", failed, "elapsed", elapsed.String())
	if failed > 0 {
		os.Exit(1)
	}
}

// runWorker owns one gfclient.Client for its entire lifetime and
// writes each downloaded file under a name scoped to workerID, so
// concurrent workers never race over the same output file.
func runWorker(workerID int, host string, port int, queue *workqueue.Queue[string], mu *sync.Mutex, succeeded, failed *int) {
	client, err := gfclient.Dial(host, port)
	if err != nil {
		logger.Error("gfload: worker dial failed", "worker", workerID, "error", err)
		mu.Lock()
		*failed++
		mu.Unlock()
		return
	}
	defer client.Close()

	requestNum := 0
	for {
		path, ok := queue.Pop()
		if !ok {
			return
		}
		requestNum++

		outPath := fmt.Sprintf("worker-%d-req-%d%s", workerID, requestNum, filepath.Ext(path))
		ok2 := downloadOne(client, path, outPath)

		mu.Lock()
		if ok2 {
			*succeeded++
		} else {
			*failed++
		}
		mu.Unlock()
	}
}

func downloadOne(client *gfclient.Client, path, outPath string) bool {
	f, err := os.Create(outPath)
	if err != nil {
		logger.Error("gfload: create output file failed", "path", outPath, "error", err)
		return false
	}
	defer f.Close()

	req := getfile.Request{Method: getfile.Get, Path: path}
	resp, err := client.Perform(req, f)
	if err != nil {
		logger.Error("gfload: request failed", "path", path, "error", err)
		return false
	}
	if resp.Status != getfile.StatusOK {
		logger.Warn("gfload: request not satisfied", "path", path, "status", resp.Status)
		return false
	}
	return true
}

func readWorkload(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths, scanner.Err()
}
