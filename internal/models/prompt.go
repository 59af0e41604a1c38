package models

import "strings"

// PromptTemplate is a reusable prompt addressed by a slash command derived
// from its title. The command is the storage key; saving a title that
// normalizes to an existing command overwrites that entry.
type PromptTemplate struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	Title       string `json:"title"`
	Command     string `gorm:"uniqueIndex" json:"command"`
	Content     string `json:"content"`
	LastUpdated string `json:"last_updated"`
}

// TableName overrides the gorm table name
func (PromptTemplate) TableName() string {
	return "prompts"
}

// DeriveCommand builds the slash command for a prompt title: lowercase,
// spaces replaced with hyphens, prefixed with "/".
func DeriveCommand(title string) string {
	return "/" + strings.ReplaceAll(strings.ToLower(title), " ", "-")
}
