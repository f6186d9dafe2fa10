package minio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateObjectName(t *testing.T) {
	a := GenerateObjectName("/items/12/", "Report.PDF")
	b := GenerateObjectName("items/12", "Report.PDF")

	assert.True(t, strings.HasPrefix(a, "items/12/"))
	assert.True(t, strings.HasSuffix(a, ".pdf"))
	assert.NotEqual(t, a, b)
	assert.Len(t, strings.Split(a, "/"), 6)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", DetectContentType("shot.PNG"))
	assert.Equal(t, "application/pdf", DetectContentType("a.b.pdf"))
	assert.Equal(t, "application/octet-stream", DetectContentType("Makefile"))
}
