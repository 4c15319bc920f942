package services

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"github.com/Doni354/HORA-APIs-sub000/internal/database/models"
)

// LogService records activity log entries in the database
type LogService struct {
	db       *gorm.DB
	logLevel models.LogLevel
}

// NewLogService creates a new LogService instance
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{
		db:       db,
		logLevel: models.LogLevelInfo, // Default log level
	}
}

// NewLogServiceWithLevel creates a new LogService instance with specified log level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	return &LogService{
		db:       db,
		logLevel: parseLogLevel(level),
	}
}

// parseLogLevel converts a string to LogLevel
func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return models.LogLevelDebug
	case "INFO":
		return models.LogLevelInfo
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// SetLogLevel sets the minimum log level
func (s *LogService) SetLogLevel(level string) {
	s.logLevel = parseLogLevel(level)
}

// shouldLog checks if a log entry should be recorded based on log level
func (s *LogService) shouldLog(level models.LogLevel) bool {
	levelPriority := map[models.LogLevel]int{
		models.LogLevelDebug: 0,
		models.LogLevelInfo:  1,
		models.LogLevelWarn:  2,
		models.LogLevelError: 3,
	}

	return levelPriority[level] >= levelPriority[s.logLevel]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	UserID  uint
	Level   models.LogLevel
	Module  models.LogModule
	Action  string
	Message string
	Details interface{} // Will be serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	if !s.shouldLog(entry.Level) {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(bytes)
		}
	}

	log := &models.Log{
		UserID:  entry.UserID,
		Level:   string(entry.Level),
		Module:  string(entry.Module),
		Action:  entry.Action,
		Message: entry.Message,
		Details: detailsJSON,
	}

	return s.db.Create(log).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelInfo,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelWarn,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelError,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// AccountChangeDetails represents details for mail account lifecycle events
type AccountChangeDetails struct {
	Email    string `json:"email"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

// LogAccountLinked logs a successful mail account link
func (s *LogService) LogAccountLinked(userID uint, email, provider string) error {
	return s.LogInfo(userID, models.LogModuleAccount, "account_linked",
		"Mail account linked: "+email,
		AccountChangeDetails{Email: email, Provider: provider})
}

// LogAccountLinkFailed logs a failed mail account link attempt
func (s *LogService) LogAccountLinkFailed(userID uint, email string, err error) error {
	details := AccountChangeDetails{Email: email}
	if err != nil {
		details.Error = err.Error()
	}
	return s.LogWarn(userID, models.LogModuleAccount, "account_link_failed",
		"Mail account link failed: "+email, details)
}

// LogAccountUnlinked logs a mail account removal
func (s *LogService) LogAccountUnlinked(userID uint, email string) error {
	return s.LogInfo(userID, models.LogModuleAccount, "account_unlinked",
		"Mail account unlinked: "+email,
		AccountChangeDetails{Email: email})
}

// MailOperationDetails represents details for mailbox operations
type MailOperationDetails struct {
	Email   string `json:"email,omitempty"`
	Folder  string `json:"folder,omitempty"`
	UID     uint32 `json:"uid,omitempty"`
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LogMailSend logs an outbound mail dispatch
func (s *LogService) LogMailSend(userID uint, email, to, subject string, err error) error {
	details := MailOperationDetails{Email: email, To: to, Subject: subject}
	if err != nil {
		details.Error = err.Error()
		return s.LogError(userID, models.LogModuleInbox, "mail_send_failed",
			"Failed to send mail", details)
	}
	return s.LogInfo(userID, models.LogModuleInbox, "mail_sent", "Mail sent", details)
}

// LogFolderFallback logs the silent fallback to INBOX after a folder-open failure
func (s *LogService) LogFolderFallback(userID uint, email, folder string) error {
	return s.LogWarn(userID, models.LogModuleInbox, "folder_fallback",
		"Folder could not be opened, fell back to INBOX",
		MailOperationDetails{Email: email, Folder: folder})
}

// AuthOperationDetails represents details for authentication events
type AuthOperationDetails struct {
	Username string `json:"username,omitempty"`
	ClientIP string `json:"client_ip,omitempty"`
	Error    string `json:"error,omitempty"`
}

// LogLogin logs a login attempt
func (s *LogService) LogLogin(userID uint, username, clientIP string, success bool, err error) error {
	details := AuthOperationDetails{Username: username, ClientIP: clientIP}
	if success {
		return s.LogInfo(userID, models.LogModuleAuth, "login", "User logged in", details)
	}
	if err != nil {
		details.Error = err.Error()
	}
	return s.LogWarn(userID, models.LogModuleAuth, "login_failed", "Login failed", details)
}

// LogAPIKeyReset logs an API key reset
func (s *LogService) LogAPIKeyReset(userID uint) error {
	return s.LogInfo(userID, models.LogModuleCLI, "api_key_reset", "API key reset", nil)
}

// LogPasswordChange logs a password change attempt
func (s *LogService) LogPasswordChange(userID uint, success bool, err error) error {
	if success {
		return s.LogInfo(userID, models.LogModuleAuth, "password_change", "Password changed", nil)
	}
	details := AuthOperationDetails{}
	if err != nil {
		details.Error = err.Error()
	}
	return s.LogWarn(userID, models.LogModuleAuth, "password_change_failed", "Password change failed", details)
}

// LogQuery represents filter criteria for querying logs
type LogQuery struct {
	UserID uint
	Level  string
	Module string
	Limit  int
	Offset int
}

// LogQueryResult holds one page of log entries
type LogQueryResult struct {
	Logs  []models.Log `json:"logs"`
	Total int64        `json:"total"`
}

// QueryLogs retrieves log entries matching the query
func (s *LogService) QueryLogs(query LogQuery) (*LogQueryResult, error) {
	db := s.db.Model(&models.Log{})

	if query.UserID != 0 {
		db = db.Where("user_id = ?", query.UserID)
	}
	if query.Level != "" {
		db = db.Where("level = ?", strings.ToUpper(query.Level))
	}
	if query.Module != "" {
		db = db.Where("module = ?", query.Module)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []models.Log
	if err := db.Order("created_at DESC").Limit(limit).Offset(query.Offset).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &LogQueryResult{Logs: logs, Total: total}, nil
}

// GetRecentLogs retrieves the most recent log entries for a user
func (s *LogService) GetRecentLogs(userID uint, limit int) ([]models.Log, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []models.Log
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
