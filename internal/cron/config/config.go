package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Expired cache entry purge, every 15 minutes
	CronScheduleCachePurge string `env:"CRON_SCHEDULE_CACHE_PURGE" envDefault:"0 */15 * * * *"`
}
