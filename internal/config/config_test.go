package config_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tartampluch/bday/internal/config"
)

// TestConstants_Integrity ensures critical constants are not empty or malformed.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"AppName", config.AppName},
		{"ConfigFileName", config.ConfigFileName},
		{"Version", config.Version},
		{"UserAgent", config.UserAgent},
		{"ICalVersion", config.ICalVersion},
		{"ICalProdid", config.ICalProdid},
		{"KeyringService", config.KeyringService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "Critical constant %s should not be empty", tt.name)
		})
	}
}

// TestDefaults_Sanity checks that default values make sense logically.
func TestDefaults_Sanity(t *testing.T) {
	assert.Equal(t, 2000, config.DefaultLeapYear, "Default leap year must be 2000 so 29/02 validates")
	assert.Equal(t, "bday.toml", config.ConfigFileName)
	assert.Equal(t, ".bday.toml", config.HiddenConfigFileName)
	assert.Equal(t, 30*time.Second, config.HTTPTimeout)
	assert.GreaterOrEqual(t, config.DefaultPort, config.MinPort)
	assert.LessOrEqual(t, config.DefaultPort, config.MaxPort)
}

// TestExitCodes_Distinct guarantees scripts can tell usage errors from config errors.
func TestExitCodes_Distinct(t *testing.T) {
	codes := []int{config.ExitCodeSuccess, config.ExitCodeError, config.ExitCodeUsage, config.ExitCodeConfig}
	seen := map[int]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "exit code %d used twice", c)
		seen[c] = true
	}
	assert.Equal(t, 2, config.ExitCodeUsage)
	assert.Equal(t, 3, config.ExitCodeConfig)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, "06/06", fmt.Sprintf(config.FormatDayMonth, 6, 6))
	assert.Equal(t, "29/02/1992", fmt.Sprintf(config.FormatDayMonthYear, 29, 2, 1992))
	assert.Equal(t, "34 → 35", fmt.Sprintf(config.FormatAge, 34, 35))
	assert.Equal(t, "06 June", time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC).Format(config.DateFormatDisplay))
}

// TestUserAgent_Format ensures the UA string follows the standard format.
func TestUserAgent_Format(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.UserAgent, config.AppName+"/"), "UserAgent must start with AppName/")
}

func TestStubVCalendar(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.StubVCalendar, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, config.StubVCalendar, config.ICalProdid)
}
