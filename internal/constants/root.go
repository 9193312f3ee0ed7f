package constants

import "time"

const (
	AppName            = "dayplan"
	AgentVersion       = "dayplan-greedy/1"
	ReasonerVersion    = "dayplan-reasoner/1"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/dayplan/dayplan.db"
	DefaultYAMLConfig  = "~/.config/dayplan/config.yaml"
	Version            = "v0.1.0"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "dayplan-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "dayplan-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.dayplan"

	// Sheet names of the tabular data source
	SheetFixed      = "fixed"
	SheetPriority   = "priority"
	SheetIncomplete = "incomplete"

	// Action ids registered on lifecycle notifications
	ActionSnooze             = "snooze"
	ActionStartNow           = "start_now"
	ActionCompleted          = "completed"
	ActionPartiallyCompleted = "partially_completed"
	ActionNotCompleted       = "not_completed"
)
