package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveCommand(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Greet", "/greet"},
		{"Save Notes", "/save-notes"},
		{"SAVE NOTES", "/save-notes"},
		{"multi word prompt title", "/multi-word-prompt-title"},
		{"already-hyphenated", "/already-hyphenated"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveCommand(tt.title), "title %q", tt.title)
	}
}

func TestNormalizeUserKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ann Lee", "ann_lee"},
		{"ANN LEE", "ann_lee"},
		{"ann  lee", "ann__lee"},
		{"solo", "solo"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUserKey(tt.name), "name %q", tt.name)
	}
}

func TestNowUsesTimestampLayout(t *testing.T) {
	stamp := Now()
	parsed, err := time.Parse(TimestampLayout, stamp)
	require.NoError(t, err)
	assert.Equal(t, stamp, parsed.Format(TimestampLayout))
}

func TestMessageListRoundTrip(t *testing.T) {
	list := MessageList{
		{Role: RoleUser, Content: "hi", Timestamp: Now(), User: "Ann"},
		{Role: RoleAssistant, Content: "hello", Timestamp: Now(), User: "Assistant"},
	}

	value, err := list.Value()
	require.NoError(t, err)

	var scanned MessageList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)
}

func TestMessageListScanNil(t *testing.T) {
	var scanned MessageList
	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
}
