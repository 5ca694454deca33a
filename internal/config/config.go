package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	RouterList   string `envconfig:"ROUTER_LIST" default:"rt.csv"`
	BackupDir    string `envconfig:"BACKUP_DIR" default:"."`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"fleetbackup.db"`
	LogPath      string `envconfig:"LOG_PATH" default:"backup_router.log"`

	SSHUsername       string `envconfig:"SSH_USERNAME" default:""`
	SSHPassword       string `envconfig:"SSH_PASSWORD" default:""`
	SSHPort           int    `envconfig:"SSH_PORT" default:"22"`
	SSHConnectTimeout string `envconfig:"SSH_CONNECT_TIMEOUT" default:"10s"`

	MaxWorkers int `envconfig:"MAX_WORKERS" default:"4"`
	MaxAgeDays int `envconfig:"MAX_AGE_DAYS" default:"6"`

	// Daemon mode settings
	BackupSchedule string `envconfig:"BACKUP_SCHEDULE" default:"0 2 * * *"`
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":8000"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("FLEETBACKUP", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
