package devices_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/pkg/devices"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"canonical desktop", "desktop", devices.Desktop},
		{"canonical mobile", "mobile", devices.Mobile},
		{"canonical tablet", "tablet", devices.Tablet},
		{"canonical with casing and padding", " Desktop ", devices.Desktop},
		{"iphone", "iPhone", devices.Mobile},
		{"android phone", "Android 14; Pixel 8", devices.Mobile},
		{"blackberry", "BlackBerry", devices.Mobile},
		{"ipad", "iPad", devices.Tablet},
		{"kindle", "Kindle Fire", devices.Tablet},
		{"samsung tablet model", "SM-T870", devices.Tablet},
		{"macintosh", "Macintosh", devices.Desktop},
		{"windows", "Windows NT 10.0", devices.Desktop},
		{"linux", "X11; Linux x86_64", devices.Desktop},
		{"empty", "", devices.Unknown},
		{"whitespace only", "   ", devices.Unknown},
		{"unrecognized", "smart-fridge", devices.Unknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, devices.Classify(tc.input))
		})
	}
}

func TestClassifyTabletRulesWinOverMobile(t *testing.T) {
	// Tablet user agents frequently also contain mobile keywords; rule order
	// must keep them in the tablet bucket.
	assert.Equal(t, devices.Tablet, devices.Classify("Android Tablet"))
	assert.Equal(t, devices.Tablet, devices.Classify("iPad; Mobile Safari"))
}
