package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarningLevel(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		want       Level
	}{
		{"zero usage", 0, LevelOK},
		{"just under warning", 59.9, LevelOK},
		{"warning boundary", 60, LevelWarning},
		{"just under critical", 89.9, LevelWarning},
		{"critical boundary", 90, LevelCritical},
		{"just under blocked", 99.9, LevelCritical},
		{"blocked boundary", 100, LevelBlocked},
		{"over the limit", 150, LevelBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WarningLevel(tt.percentage))
		})
	}
}

func TestServices_StableOrder(t *testing.T) {
	assert.Equal(t, []string{ServiceExoAssistant, ServiceVideoAssistant, ServiceImageUpload}, Services())
}
