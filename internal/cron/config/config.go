package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Local archive retention sweep, daily at midnight
	CronScheduleArchiveRetention string `env:"CRON_SCHEDULE_ARCHIVE_RETENTION" envDefault:"0 0 0 * * *"`
}
