package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/routerops/fleetbackup/internal/config"
	"github.com/routerops/fleetbackup/internal/database"
	"github.com/routerops/fleetbackup/internal/fleet"
	"github.com/routerops/fleetbackup/internal/inventory"
	"github.com/routerops/fleetbackup/internal/logging"
	"github.com/routerops/fleetbackup/internal/server"
	"github.com/routerops/fleetbackup/internal/sshconn"
)

func main() {
	serve := flag.Bool("serve", false, "run continuously on the configured schedule and expose the status API")
	flag.Parse()

	config.Load()
	logging.Init()

	if err := database.Init(); err != nil {
		if *serve {
			log.Fatalf("Database init: %v", err)
		}
		// One-shot runs still back up the fleet without run history.
		logging.Warningf("Run history disabled: %v", err)
	}
	defer database.Close()

	runner := fleet.NewRunner(fleet.Options{
		Credentials: sshconn.Credentials{
			Username: config.Cfg.SSHUsername,
			Password: config.Cfg.SSHPassword,
		},
		Port:           config.Cfg.SSHPort,
		ConnectTimeout: connectTimeout(),
		BackupDir:      config.Cfg.BackupDir,
		MaxWorkers:     config.Cfg.MaxWorkers,
		MaxAgeDays:     config.Cfg.MaxAgeDays,
	})

	if !*serve {
		// The router list is the one input without which no work is possible.
		routers, err := inventory.Load(config.Cfg.RouterList)
		if err != nil {
			logging.Errorf("Cannot read router list: %v", err)
			database.Close()
			os.Exit(1)
		}
		recordRun(runner.Run(context.Background(), routers))
		return
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.Default()))))
	if _, err := c.AddFunc(config.Cfg.BackupSchedule, func() {
		runScheduled(sigCtx, runner)
	}); err != nil {
		log.Fatalf("Invalid backup schedule %q: %v", config.Cfg.BackupSchedule, err)
	}
	c.Start()
	logging.Infof("Scheduled fleet backups: %q", config.Cfg.BackupSchedule)

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: server.New(),
	}

	go func() {
		logging.Infof("Status API listening on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	// Let an in-flight run finish before closing up.
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// runScheduled performs one fleet pass under the daemon. A missing or
// malformed router list skips the run but keeps the daemon alive.
func runScheduled(ctx context.Context, runner *fleet.Runner) {
	routers, err := inventory.Load(config.Cfg.RouterList)
	if err != nil {
		logging.Errorf("Cannot read router list, skipping run: %v", err)
		return
	}
	recordRun(runner.Run(ctx, routers))
}

// recordRun persists a run summary. Recording failures are logged, never
// fatal: the backups themselves are already on disk.
func recordRun(sum fleet.Summary) {
	if database.DB == nil {
		return
	}

	run := &database.BackupRun{
		ID:         sum.RunID,
		StartedAt:  sum.StartedAt,
		FinishedAt: sum.FinishedAt,
		Routers:    len(sum.Results),
		Succeeded:  sum.Succeeded(),
		Failed:     sum.Failed(),
		Rotated:    len(sum.Rotation.Renamed),
	}
	if err := database.CreateRun(run); err != nil {
		logging.Warningf("Could not record run %s: %v", sum.RunID, err)
		return
	}

	for _, res := range sum.Results {
		for _, f := range res.Files {
			detail := ""
			if f.Err != nil {
				detail = f.Err.Error()
			}
			file := &database.BackupFile{
				RunID:      sum.RunID,
				Router:     res.Router.Name,
				Address:    res.Router.Address,
				RemoteName: f.Name,
				LocalPath:  f.LocalPath,
				Size:       f.Size,
				Outcome:    f.Kind.String(),
				Detail:     detail,
			}
			if err := database.RecordFile(file); err != nil {
				logging.Warningf("Could not record file %s for %s: %v", f.Name, res.Router.Name, err)
			}
		}
	}

	for _, ren := range sum.Rotation.Renamed {
		ev := &database.RotationEvent{
			RunID:   sum.RunID,
			OldName: ren.From,
			NewName: ren.To,
			AgeDays: ren.AgeDays,
		}
		if err := database.RecordRotation(ev); err != nil {
			logging.Warningf("Could not record rotation of %s: %v", ren.From, err)
		}
	}
}

func connectTimeout() time.Duration {
	d, err := time.ParseDuration(config.Cfg.SSHConnectTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
