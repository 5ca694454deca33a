// Package fleet orchestrates one backup pass over the router fleet: a
// bounded pool of concurrent per-router jobs, a barrier, then a single
// retention pass over the shared backup directory.
//
// Each stage returns typed outcomes; this package is the layer that decides
// to log-and-continue, so one router's total failure never affects another's
// and never prevents the retention pass.
package fleet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/routerops/fleetbackup/internal/inventory"
	"github.com/routerops/fleetbackup/internal/logging"
	"github.com/routerops/fleetbackup/internal/logutil"
	"github.com/routerops/fleetbackup/internal/retention"
	"github.com/routerops/fleetbackup/internal/sshconn"
	"github.com/routerops/fleetbackup/internal/transfer"
)

// Options configures one Runner. Zero values fall back to the documented
// defaults (4 workers, 6 day retention, the standard allow-list).
type Options struct {
	Credentials    sshconn.Credentials
	Port           int
	ConnectTimeout time.Duration
	BackupDir      string
	MaxWorkers     int
	MaxAgeDays     int
	FileNames      []string
}

// Result is the outcome of one router's backup job. Err is set when the
// session could not be established or the remote listing failed; per-file
// outcomes are in Files.
type Result struct {
	Router inventory.Router
	Files  []transfer.FileResult
	Err    error
}

// Summary is the outcome of one full fleet run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
	Rotation   retention.Report
}

// Succeeded counts routers whose session and listing completed.
func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts routers skipped for this run.
func (s Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Dialer opens a remote file-transfer session to one router address.
// Closing the returned Remote releases the whole session.
type Dialer func(ctx context.Context, address string) (transfer.Remote, error)

// Runner executes fleet backup runs.
type Runner struct {
	opts Options
	dial Dialer
	now  func() time.Time
}

func NewRunner(opts Options) *Runner {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = 6
	}
	if len(opts.FileNames) == 0 {
		opts.FileNames = transfer.DefaultFileNames
	}
	return &Runner{
		opts: opts,
		dial: sshDialer(opts),
		now:  time.Now,
	}
}

// sessionRemote ties the SFTP subsystem and its SSH client together so one
// Close releases both.
type sessionRemote struct {
	transfer.Remote
	client *ssh.Client
}

func (s *sessionRemote) Close() error {
	err := s.Remote.Close()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func sshDialer(opts Options) Dialer {
	return func(ctx context.Context, address string) (transfer.Remote, error) {
		client, err := sshconn.Connect(ctx, address, opts.Port, opts.Credentials, opts.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		remote, err := transfer.NewRemote(client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return &sessionRemote{Remote: remote, client: client}, nil
	}
}

// Run dispatches one backup job per router onto a pool of at most MaxWorkers
// concurrent workers, waits for all of them, then rotates stale backups in
// the backup directory exactly once.
func (r *Runner) Run(ctx context.Context, routers []inventory.Router) Summary {
	sum := Summary{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}
	logging.Infof("Starting backup run %s for %d router(s)", sum.RunID, len(routers))

	results := make([]Result, len(routers))
	sem := make(chan struct{}, r.opts.MaxWorkers)
	var wg sync.WaitGroup

	for i, router := range routers {
		wg.Add(1)
		go func(i int, router inventory.Router) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.backupRouter(ctx, router)
		}(i, router)
	}

	// Barrier: every fetch completes before any rotation happens.
	wg.Wait()
	sum.Results = results

	sum.Rotation = r.rotate()
	sum.FinishedAt = r.now()
	logging.Infof("Backup run %s finished: %d succeeded, %d failed, %d rotated",
		sum.RunID, sum.Succeeded(), sum.Failed(), len(sum.Rotation.Renamed))
	return sum
}

// backupRouter connects to one router and fetches its exports. All failures
// are converted to log lines here; the session, once open, is released
// exactly once via defer no matter how the fetch exits.
func (r *Runner) backupRouter(ctx context.Context, router inventory.Router) Result {
	res := Result{Router: router}
	addr := logutil.Sanitize(router.Address)
	name := logutil.Sanitize(router.Name)

	remote, err := r.dial(ctx, router.Address)
	if err != nil {
		res.Err = err
		var cerr *sshconn.Error
		if errors.As(err, &cerr) {
			switch cerr.Kind {
			case sshconn.KindAuth:
				logging.Errorf("Authentication error connecting to router %s", addr)
			case sshconn.KindProtocol:
				logging.Errorf("SSH error connecting to router %s: %v", addr, cerr.Err)
			default:
				logging.Errorf("System error connecting to router %s: %v", addr, cerr.Err)
			}
		} else {
			logging.Errorf("Error connecting to router %s: %v", addr, err)
		}
		return res
	}
	defer remote.Close()

	files, err := transfer.Fetch(remote, router.Name, r.opts.BackupDir, r.opts.FileNames, r.now())
	if err != nil {
		res.Err = err
		logging.Errorf("Error listing files on router %s: %v", name, err)
		return res
	}
	res.Files = files

	for _, f := range files {
		fname := logutil.Sanitize(f.Name)
		switch f.Kind {
		case transfer.KindFetched:
			logging.Infof("File %s downloaded successfully for router %s.", fname, name)
		case transfer.KindAbsent:
			logging.Warningf("File %s not found on router %s.", fname, name)
		case transfer.KindNotFound:
			logging.Errorf("File not found downloading %s from router %s: %v", fname, name, f.Err)
		case transfer.KindPermission:
			logging.Errorf("Permission denied downloading file %s from router %s: %v", fname, name, f.Err)
		case transfer.KindProtocol:
			logging.Errorf("SSH error downloading file %s from router %s: %v", fname, name, f.Err)
		default:
			logging.Errorf("System error downloading file %s from router %s: %v", fname, name, f.Err)
		}
	}
	return res
}

// rotate runs the retention pass and logs its outcome.
func (r *Runner) rotate() retention.Report {
	report, err := retention.Rotate(r.opts.BackupDir, r.opts.MaxAgeDays, r.now())
	if err != nil {
		logging.Errorf("Retention scan of %s failed: %v", r.opts.BackupDir, err)
		return report
	}
	for _, ren := range report.Renamed {
		logging.Infof("File %s renamed to %s.", ren.From, ren.To)
	}
	for _, f := range report.Failures {
		logging.Errorf("Error renaming file %s: %v", f.Name, f.Err)
	}
	return report
}
