package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsAllows(t *testing.T) {
	l := Limits{AllowedMimeTypes: []string{"image/*", "application/pdf", " Video/MP4 "}}

	assert.True(t, l.Allows("image/png"))
	assert.True(t, l.Allows("image/svg+xml"))
	assert.True(t, l.Allows("application/pdf"))
	assert.True(t, l.Allows("video/mp4"))
	assert.True(t, l.Allows("Application/PDF; name=x"))

	assert.False(t, l.Allows("imagex/png"))
	assert.False(t, l.Allows("application/zip"))
	assert.False(t, l.Allows(""))
	assert.False(t, l.Allows("image"))
}

func TestLimitsValidate(t *testing.T) {
	valid := Limits{MaxTotalFileSize: 1, AllowedMimeTypes: []string{"image/*"}}
	assert.NoError(t, valid.Validate())

	tests := map[string]Limits{
		"zero size":       {AllowedMimeTypes: []string{"image/*"}},
		"empty allowlist": {MaxTotalFileSize: 1},
		"multi file":      {MaxTotalFileSize: 1, AllowedMimeTypes: []string{"image/*"}, MaxFiles: 3},
		"negative field":  {MaxTotalFileSize: 1, AllowedMimeTypes: []string{"image/*"}, MaxFieldSize: -1},
	}
	for name, l := range tests {
		assert.Error(t, l.Validate(), name)
	}
}

func TestLimitsDefaults(t *testing.T) {
	l := Limits{MaxTotalFileSize: 1, AllowedMimeTypes: []string{"image/*"}}.withDefaults()
	assert.Equal(t, 1, l.MaxFiles)
	assert.Equal(t, int64(defaultMaxFieldSize), l.MaxFieldSize)
}
