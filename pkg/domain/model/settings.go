package model

import (
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultUnfollowReminderDays = 7
	DefaultDMReminderDays       = 3
)

// DefaultAccountSources is the starter set of source tags
var DefaultAccountSources = []string{
	"hashtag",
	"competitor",
	"location",
	"manual",
	"referral",
	"story_mention",
}

// Settings is the singleton application configuration in application shape
type Settings struct {
	MyAccounts           []string `json:"myAccounts" toml:"my_accounts"`
	AccountSources       []string `json:"accountSources" toml:"account_sources"`
	UnfollowReminderDays int      `json:"unfollowReminderDays" toml:"unfollow_reminder_days" validate:"gte=1"`
	DMReminderDays       int      `json:"dmReminderDays" toml:"dm_reminder_days" validate:"gte=1"`
	TelegramBotToken     string   `json:"telegramBotToken" toml:"telegram_bot_token" masq:"secret"`
	TelegramChatID       string   `json:"telegramChatId" toml:"telegram_chat_id"`
}

// SettingsRecord is the flat storage shape of Settings
type SettingsRecord struct {
	MyAccounts           string `json:"myAccounts"`
	AccountSources       string `json:"accountSources"`
	UnfollowReminderDays int    `json:"unfollowReminderDays"`
	DMReminderDays       int    `json:"dmReminderDays"`
	TelegramBotToken     string `json:"telegramBotToken" masq:"secret"`
	TelegramChatID       string `json:"telegramChatId"`
}

// DefaultSettings returns the settings used when none have been stored
func DefaultSettings() *Settings {
	return &Settings{
		MyAccounts:           []string{},
		AccountSources:       copyList(DefaultAccountSources),
		UnfollowReminderDays: DefaultUnfollowReminderDays,
		DMReminderDays:       DefaultDMReminderDays,
	}
}

// Validate checks reminder intervals
func (s *Settings) Validate() error {
	if s == nil {
		return goerr.Wrap(ErrValidation, "settings are required")
	}
	return validateStruct(s)
}

// Normalize replaces nil lists with empty ones and unset reminder
// intervals with their defaults.
func (s *Settings) Normalize() {
	if s.MyAccounts == nil {
		s.MyAccounts = []string{}
	}
	if s.AccountSources == nil {
		s.AccountSources = []string{}
	}
	if s.UnfollowReminderDays == 0 {
		s.UnfollowReminderDays = DefaultUnfollowReminderDays
	}
	if s.DMReminderDays == 0 {
		s.DMReminderDays = DefaultDMReminderDays
	}
}

// HasTelegram reports whether Telegram notifications are configured
func (s *Settings) HasTelegram() bool {
	return s.TelegramBotToken != "" && s.TelegramChatID != ""
}

// IsKnownSource reports whether source is one of the configured tags
func (s *Settings) IsKnownSource(source string) bool {
	for _, src := range s.AccountSources {
		if src == source {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the settings
func (s *Settings) Clone() *Settings {
	copied := *s
	copied.MyAccounts = copyList(s.MyAccounts)
	copied.AccountSources = copyList(s.AccountSources)
	return &copied
}

// Record converts settings into storage shape
func (s *Settings) Record() *SettingsRecord {
	return &SettingsRecord{
		MyAccounts:           EncodeList(s.MyAccounts),
		AccountSources:       EncodeList(s.AccountSources),
		UnfollowReminderDays: s.UnfollowReminderDays,
		DMReminderDays:       s.DMReminderDays,
		TelegramBotToken:     s.TelegramBotToken,
		TelegramChatID:       s.TelegramChatID,
	}
}

// Settings converts a stored record back into application shape
func (r *SettingsRecord) Settings() *Settings {
	s := &Settings{
		MyAccounts:           DecodeList(r.MyAccounts),
		AccountSources:       DecodeList(r.AccountSources),
		UnfollowReminderDays: r.UnfollowReminderDays,
		DMReminderDays:       r.DMReminderDays,
		TelegramBotToken:     r.TelegramBotToken,
		TelegramChatID:       r.TelegramChatID,
	}
	s.Normalize()
	return s
}
